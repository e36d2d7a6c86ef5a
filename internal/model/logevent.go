package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultLevel applies when the payload carries no level.
const DefaultLevel = "info"

// TimestampLayout is ISO-8601 with a numeric zone offset, used for server-side timestamps.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

var (
	// ErrEmptyPayload covers bodies that are not JSON or decode to an empty/false value.
	ErrEmptyPayload = errors.New("payload is empty or not valid JSON")
	// ErrNotObject covers valid JSON whose top level is not an object.
	ErrNotObject = errors.New("payload is not a JSON object")
)

// LogEvent is one client-side log event after defaults have been applied.
// Non-string values in the string fields keep their compact JSON text.
type LogEvent struct {
	Timestamp string
	Level     string
	Message   string
	URL       string
	UserAgent string
	// Data is the compact JSON of the "data" field, "{}" when absent.
	Data json.RawMessage
}

// DecodeLogEvent parses an ingest body. now stamps events without a timestamp.
func DecodeLogEvent(body []byte, now time.Time) (*LogEvent, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil || isFalsy(top) {
		return nil, ErrEmptyPayload
	}
	if _, ok := top.(map[string]any); !ok {
		return nil, ErrNotObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, ErrEmptyPayload
	}

	ev := &LogEvent{
		Timestamp: text(fields["timestamp"], now.Format(TimestampLayout)),
		Level:     text(fields["level"], DefaultLevel),
		Message:   text(fields["message"], ""),
		URL:       text(fields["url"], ""),
		UserAgent: text(fields["userAgent"], ""),
		Data:      json.RawMessage("{}"),
	}
	if ev.Level == "" {
		ev.Level = DefaultLevel
	}
	if raw := fields["data"]; !isNull(raw) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("compact data: %w", err)
		}
		ev.Data = buf.Bytes()
	}
	return ev, nil
}

// DisplayLevel is the level as it appears inside a rendered line.
func (e *LogEvent) DisplayLevel() string {
	return strings.ToUpper(e.Level)
}

// FileLevel is the level as it appears in the level-specific file name.
func (e *LogEvent) FileLevel() string {
	return strings.ToLower(e.Level)
}

// Line renders the persisted form, trailing newline included:
//
//	[<timestamp>] <LEVEL>: <message> | URL: <url> | Data: <data>
func (e *LogEvent) Line() string {
	return fmt.Sprintf("[%s] %s: %s | URL: %s | Data: %s\n",
		e.Timestamp, e.DisplayLevel(), e.Message, e.URL, e.Data)
}

// ValidLevel reports whether level can be used inside a log file name: it
// must be non-empty, not a dot component and free of separators and NUL.
func ValidLevel(level string) bool {
	if level == "" || level == "." || level == ".." {
		return false
	}
	return !strings.ContainsAny(level, "/\\\x00")
}

func text(raw json.RawMessage, def string) string {
	if isNull(raw) {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// isFalsy mirrors loose truthiness: null, false, 0, "", "0" and empty
// arrays or objects all count as no payload.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == "" || t == "0"
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
