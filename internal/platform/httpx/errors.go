// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/motorhub/motorhub/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	Problem(w, StatusFor(err), TitleFor(err), DetailFor(err))
}

// Fail logs err and writes the problem response. Server-side failures are logged at
// error level; ordinary rejections at debug.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	if logger != nil {
		if StatusFor(err) >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), op, slog.Any("error", err))
		} else {
			logger.DebugContext(r.Context(), op, slog.Any("error", err))
		}
	}
	RespondError(w, err)
}

// StatusFor returns the HTTP status matching err's place in the error taxonomy.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, shared.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// TitleFor returns the problem title for err.
func TitleFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrConfiguration):
		return "Internal Error"
	case errors.Is(err, shared.ErrNotFound):
		return "Not Found"
	case errors.Is(err, shared.ErrValidation):
		return "Validation Failed"
	case errors.Is(err, shared.ErrAccessDenied):
		return "Access Denied"
	case errors.Is(err, shared.ErrIllegalTransition):
		return "Illegal Transition"
	case errors.Is(err, shared.ErrConcurrentModification):
		return "Concurrent Modification"
	default:
		return "Internal Error"
	}
}

// DetailFor hides internal error text from clients.
func DetailFor(err error) string {
	if StatusFor(err) == http.StatusInternalServerError {
		return ""
	}
	return err.Error()
}
