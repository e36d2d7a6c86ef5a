package handler

import (
	"errors"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/frontlog/internal/response"
	"github.com/akave-ai/frontlog/internal/service"
)

const maxLoggedBody = 2048

const (
	msgWritten      = "Log written successfully"
	msgInvalidJSON  = "Invalid JSON input"
	msgInvalidLevel = "Invalid log level"
	msgInvalidDate  = "Invalid date"
	msgNotFound     = "Log file not found"
	msgWriteFailed  = "Failed to write log"
	msgReadFailed   = "Failed to read logs"
)

// LogHandler serves ingest (POST) and retrieve (GET) for frontend logs.
// All status code decisions live here; the service only returns error kinds.
type LogHandler struct {
	Service *service.LogService
	Logger  zerolog.Logger
}

// Ingest accepts one JSON log event (POST /api/logs).
func (h *LogHandler) Ingest(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		// Body limit and similar middleware errors keep their own status.
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return response.BadRequest(c, msgInvalidJSON)
	}

	if e := h.Logger.Debug(); e.Enabled() {
		preview := string(body)
		if len(preview) > maxLoggedBody {
			preview = preview[:maxLoggedBody] + "..."
		}
		e.Int("bytes", len(body)).Str("body", preview).Msg("ingest received")
	}

	if _, err := h.Service.Ingest(c.Request().Context(), body); err != nil {
		var opErr *service.OpError
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return response.BadRequest(c, msgInvalidJSON)
		case errors.Is(err, service.ErrInvalidLevel):
			return response.BadRequest(c, msgInvalidLevel)
		case errors.As(err, &opErr):
			return response.InternalError(c, msgWriteFailed, opErr.Err.Error())
		default:
			return response.InternalError(c, msgWriteFailed, err.Error())
		}
	}
	return response.OK(c, msgWritten)
}

// Retrieve returns the raw log file for ?date=YYYY-MM-DD&level=... (GET /api/logs).
func (h *LogHandler) Retrieve(c echo.Context) error {
	data, err := h.Service.Retrieve(c.Request().Context(), c.QueryParam("date"), c.QueryParam("level"))
	if err != nil {
		var opErr *service.OpError
		switch {
		case errors.Is(err, service.ErrNotFound):
			return response.NotFound(c, msgNotFound)
		case errors.Is(err, service.ErrInvalidDate):
			return response.BadRequest(c, msgInvalidDate)
		case errors.Is(err, service.ErrInvalidLevel):
			return response.BadRequest(c, msgInvalidLevel)
		case errors.As(err, &opErr):
			return response.InternalError(c, msgReadFailed, opErr.Err.Error())
		default:
			return response.InternalError(c, msgReadFailed, err.Error())
		}
	}
	return response.Text(c, data)
}
