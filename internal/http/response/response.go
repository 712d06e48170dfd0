// Package response writes JSON envelopes for routes served outside the huma API:
// the method gate, unknown paths, and rate-limit rejections.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pixivrss/pixivrss-server/internal/errors"
)

// Envelope is the JSON error body written by this package.
type Envelope struct {
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}

func write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "status", status, "error", err)
	}
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	write(w, status, Envelope{Error: message}, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	write(w, http.StatusNotFound, Envelope{Code: string(errors.CodeNotFound), Error: message}, logger)
}

// NotImplemented writes a 501 Not Implemented response.
func NotImplemented(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotImplemented, message, logger)
}

// TooManyRequests writes a 429 response with a Retry-After hint.
func TooManyRequests(w http.ResponseWriter, retryAfter time.Duration, logger *slog.Logger) {
	secs := max(int(retryAfter.Round(time.Second)/time.Second), 1)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	Error(w, http.StatusTooManyRequests, "too many requests", logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Domain errors are mapped to their HTTP codes, unknown errors become 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status >= 500 && logger != nil {
			logger.Error("Request failed", "code", domainErr.Code, "error", err)
		}
		write(w, status, Envelope{Code: string(domainErr.Code), Error: domainErr.Message}, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, "internal server error", logger)
}
