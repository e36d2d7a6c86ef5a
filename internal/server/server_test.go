package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/frontlog/internal/config"
	"github.com/akave-ai/frontlog/internal/service"
	"github.com/akave-ai/frontlog/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.FileStore, string) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), 0o755, 0o644)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	now := time.Now()
	svc := service.NewLogService(store, zerolog.Nop(), service.WithClock(func() time.Time { return now }))
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:               "0",
			ReadTimeout:        5,
			WriteTimeout:       5,
			IdleTimeout:        5,
			CORSAllowedOrigins: []string{"*"},
			BodyLimit:          "1M",
		},
	}
	return New(cfg, svc, zerolog.Nop(), nil), store, now.Format(service.DateLayout)
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestIngestThenRetrieve(t *testing.T) {
	s, _, today := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/logs",
		`{"level":"warn","message":"disk low","data":{"pct":87},"url":"/app","timestamp":"2024-01-01T00:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != `{"success":true,"message":"Log written successfully"}` {
		t.Fatalf("ingest body: %s", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}

	line := "[2024-01-01T00:00:00Z] WARN: disk low | URL: /app | Data: {\"pct\":87}\n"
	for _, target := range []string{"/api/logs", "/api/logs?level=all&date=" + today, "/api/logs?level=WARN"} {
		rec = do(s, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("%s: expected text/plain, got %q", target, ct)
		}
		if rec.Body.String() != line {
			t.Errorf("%s: got %q, want %q", target, rec.Body.String(), line)
		}
	}
}

func TestIngest_InvalidJSON(t *testing.T) {
	s, store, today := newTestServer(t)
	for _, body := range []string{"{broken", "null", "false", "{}"} {
		rec := do(s, http.MethodPost, "/api/logs", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, rec.Code)
		}
		if got := rec.Body.String(); got != `{"error":"Invalid JSON input"}` {
			t.Fatalf("%q: body %s", body, got)
		}
	}
	rec := do(s, http.MethodPost, "/api/logs", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", rec.Code)
	}
	if _, err := store.Read(context.Background(), service.CombinedFileName(today)); err == nil {
		t.Fatal("no file should have been written")
	}
}

func TestIngest_InvalidLevel(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(s, http.MethodPost, "/api/logs", `{"level":"../../tmp/x","message":"m"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"error":"Invalid log level"}` {
		t.Fatalf("body %s", got)
	}
}

func TestIngest_AccentedLevel(t *testing.T) {
	s, store, today := newTestServer(t)
	rec := do(s, http.MethodPost, "/api/logs", `{"level":"Débogage","message":"m"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	data, err := store.Read(context.Background(), service.LevelFileName("débogage", today))
	if err != nil {
		t.Fatalf("read level file: %v", err)
	}
	if !strings.Contains(string(data), "DÉBOGAGE: m") {
		t.Errorf("unexpected line %q", data)
	}
}

func TestIngest_ChunkedBodyOverLimit(t *testing.T) {
	s, _, _ := newTestServer(t)
	payload := `{"message":"` + strings.Repeat("a", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d (%.80s)", rec.Code, rec.Body.String())
	}
}

func TestIngest_WriteFailure(t *testing.T) {
	s, store, today := newTestServer(t)
	if err := storeBlock(store, service.CombinedFileName(today)); err != nil {
		t.Fatalf("block file: %v", err)
	}
	rec := do(s, http.MethodPost, "/api/logs", `{"message":"m"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"Failed to write log: `) {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestRetrieve_Errors(t *testing.T) {
	s, store, today := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"missing", "/api/logs?date=1999-12-31", http.StatusNotFound, `{"error":"Log file not found"}`},
		{"missing level", "/api/logs?level=debug", http.StatusNotFound, `{"error":"Log file not found"}`},
		{"bad date", "/api/logs?date=yesterday", http.StatusBadRequest, `{"error":"Invalid date"}`},
		{"bad level", "/api/logs?level=a%2Fb", http.StatusBadRequest, `{"error":"Invalid log level"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.target, "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := rec.Body.String(); got != tt.body {
				t.Fatalf("body %s", got)
			}
		})
	}

	if err := storeBlock(store, service.LevelFileName("info", today)); err != nil {
		t.Fatalf("block file: %v", err)
	}
	rec := do(s, http.MethodGet, "/api/logs?level=info", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"Failed to read logs: `) {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestConcurrentIngest(t *testing.T) {
	s, _, _ := newTestServer(t)
	srv := httptest.NewServer(s.Echo)
	defer srv.Close()

	const calls = 25
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/api/logs", "application/json",
				strings.NewReader(`{"level":"error","message":"concurrent"}`))
			if err != nil {
				t.Errorf("post: %v", err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	rec := do(s, http.MethodGet, "/api/logs?level=error", "")
	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	if len(lines) != calls {
		t.Fatalf("expected %d lines, got %d", calls, len(lines))
	}
	for _, l := range lines {
		if !strings.HasSuffix(l, "] ERROR: concurrent | URL:  | Data: {}") {
			t.Fatalf("malformed line %q", l)
		}
	}
}

func TestStart_ReturnsAfterShutdownCompletes(t *testing.T) {
	s, _, _ := newTestServer(t)
	var finished atomic.Bool
	s.RegisterOnShutdown(func() {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.Echo.ListenerAddr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("expected ErrServerClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if !finished.Load() {
		t.Fatal("Start returned before shutdown finished")
	}
}

func TestStart_ListenFailureReturns(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.Config.Server.Port = "not-a-port"

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()
	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("expected listen error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return on listen failure")
	}
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// storeBlock puts a directory where a log file is expected so reads and
// appends on it fail with an I/O error.
func storeBlock(store *storage.FileStore, name string) error {
	return os.Mkdir(store.Path(name), 0o755)
}
