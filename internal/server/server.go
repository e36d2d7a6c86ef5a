package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/frontlog/internal/config"
	"github.com/akave-ai/frontlog/internal/handler"
	"github.com/akave-ai/frontlog/internal/observability"
	"github.com/akave-ai/frontlog/internal/service"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	logger zerolog.Logger
	nrApp  *newrelic.Application // optional; shut down with the server

	onShutdown []func()
}

// New builds the Echo server and registers routes. nrApp may be nil.
func New(cfg *config.Config, svc *service.LogService, logger zerolog.Logger, nrApp *newrelic.Application) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		requestLogger(logger),
		observability.Middleware(nrApp),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}),
		middleware.BodyLimit(cfg.Server.BodyLimit),
	)

	logs := &handler.LogHandler{Service: svc, Logger: logger}

	e.POST("/api/logs", logs.Ingest)
	e.GET("/api/logs", logs.Retrieve)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{Echo: e, Config: cfg, logger: logger, nrApp: nrApp}
}

// requestLogger emits one zerolog event per request.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// RegisterOnShutdown adds f to the functions run at the end of Shutdown,
// after the APM agent has been flushed. Not safe to call once Start runs.
func (s *Server) RegisterOnShutdown(f func()) {
	s.onShutdown = append(s.onShutdown, f)
}

// Start starts the HTTP server. Blocks until the context is cancelled or the server fails.
// On context cancel it returns http.ErrServerClosed, but only after Shutdown
// has completed, so callers may exit right away.
func (s *Server) Start(ctx context.Context) error {
	shutdownDone := make(chan struct{})
	startFailed := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-ctx.Done():
		case <-startFailed:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("shutdown")
		}
	}()

	addr := ":" + s.Config.Server.Port
	s.logger.Info().Str("addr", addr).Msg("listening")
	err := s.Echo.Start(addr)
	if ctx.Err() == nil {
		close(startFailed)
	}
	<-shutdownDone
	return err
}

// Shutdown gracefully stops the server, flushes the APM agent and runs the
// registered shutdown functions.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if s.nrApp != nil {
		s.nrApp.Shutdown(5 * time.Second)
	}
	for _, f := range s.onShutdown {
		f()
	}
	return err
}
