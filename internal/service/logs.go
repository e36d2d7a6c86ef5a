package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/frontlog/internal/model"
	"github.com/akave-ai/frontlog/internal/storage"
)

const (
	filePrefix = "frontend"
	// DateLayout is the calendar date used in file names and retrieve queries.
	DateLayout = "2006-01-02"
	// AllLevels selects the combined daily file on retrieve.
	AllLevels = "all"
)

// LogService ingests frontend log events into daily files and reads them back.
type LogService struct {
	store    *storage.FileStore
	log      zerolog.Logger
	now      func() time.Time
	validate *validator.Validate
}

type Option func(*LogService)

// WithClock replaces time.Now; file dates and default timestamps follow it.
func WithClock(now func() time.Time) Option {
	return func(s *LogService) { s.now = now }
}

func NewLogService(store *storage.FileStore, log zerolog.Logger, opts ...Option) *LogService {
	s := &LogService{
		store:    store,
		log:      log.With().Str("component", "log_service").Logger(),
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CombinedFileName is the all-levels file for date.
func CombinedFileName(date string) string {
	return fmt.Sprintf("%s_%s.log", filePrefix, date)
}

// LevelFileName is the level-specific file for date. level must already be lowercase.
func LevelFileName(level, date string) string {
	return fmt.Sprintf("%s_%s_%s.log", filePrefix, level, date)
}

// Ingest decodes body and appends its rendered line to the combined file and
// then to the level file of the current day. The two appends are independent:
// if the second fails the first is kept and the failure is returned.
func (s *LogService) Ingest(ctx context.Context, body []byte) (*model.LogEvent, error) {
	now := s.now()
	ev, err := model.DecodeLogEvent(body, now)
	if err != nil {
		if errors.Is(err, model.ErrEmptyPayload) || errors.Is(err, model.ErrNotObject) {
			return nil, ErrInvalidInput
		}
		return nil, &OpError{Op: OpWrite, Err: err}
	}
	if !model.ValidLevel(ev.Level) {
		return nil, ErrInvalidLevel
	}

	date := now.Format(DateLayout)
	line := []byte(ev.Line())
	for _, name := range []string{CombinedFileName(date), LevelFileName(ev.FileLevel(), date)} {
		if err := s.append(ctx, name, line); err != nil {
			s.log.Error().Err(err).Str("file", name).Msg("append failed")
			return nil, &OpError{Op: OpWrite, Err: err}
		}
	}

	s.log.Debug().
		Str("level", ev.FileLevel()).
		Str("date", date).
		Int("bytes", len(line)).
		Msg("log event written")
	return ev, nil
}

// Retrieve returns the raw content of the file for date and level. An empty
// date means today; an empty level means AllLevels.
func (s *LogService) Retrieve(ctx context.Context, date, level string) ([]byte, error) {
	if date == "" {
		date = s.now().Format(DateLayout)
	} else if err := s.validate.Var(date, "datetime="+DateLayout); err != nil {
		return nil, ErrInvalidDate
	}
	if level == "" {
		level = AllLevels
	}

	name := CombinedFileName(date)
	if level != AllLevels {
		if !model.ValidLevel(level) {
			return nil, ErrInvalidLevel
		}
		name = LevelFileName(strings.ToLower(level), date)
	}

	defer newrelic.FromContext(ctx).StartSegment("storage/read").End()
	data, err := s.store.Read(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error().Err(err).Str("file", name).Msg("read failed")
		return nil, &OpError{Op: OpRead, Err: err}
	}
	return data, nil
}

func (s *LogService) append(ctx context.Context, name string, line []byte) error {
	defer newrelic.FromContext(ctx).StartSegment("storage/append").End()
	return s.store.Append(ctx, name, line)
}
