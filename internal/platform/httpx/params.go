package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/shared"
)

// UUIDParam parses the chi URL parameter name as a UUID.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, shared.Invalid(name, "must be a uuid")
	}
	return id, nil
}

// BindJSON decodes the request body into target, reporting malformed input as a ValidationError.
func BindJSON(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return shared.Invalid("body", err.Error())
	}
	return nil
}

// IntQuery parses an optional non-negative integer query parameter. Absent means zero.
func IntQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, shared.Invalid(name, "must be a non-negative integer")
	}
	return v, nil
}
