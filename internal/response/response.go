package response

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse is the body of a successful write.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// APIError is the body of every error response.
type APIError struct {
	Error string `json:"error"`
}

// OK sends 200 with {"success":true,"message":...}.
func OK(c echo.Context, message string) error {
	return jsonBody(c, http.StatusOK, SuccessResponse{Success: true, Message: message})
}

// Text sends 200 with data as plain text, unmodified.
func Text(c echo.Context, data []byte) error {
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, data)
}

// Error sends a JSON error response using APIError.
func Error(c echo.Context, status int, message string) error {
	return jsonBody(c, status, APIError{Error: message})
}

// jsonBody writes compact JSON with no trailing newline, unlike c.JSON.
func jsonBody(c echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.JSONBlob(status, b)
}

// BadRequest sends 400.
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// NotFound sends 404.
func NotFound(c echo.Context, message string) error {
	return Error(c, http.StatusNotFound, message)
}

// InternalError sends 500 with message and the error detail appended.
func InternalError(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusInternalServerError, message+": "+errDetail)
}
