package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorhub/motorhub/internal/observability"
	"github.com/motorhub/motorhub/internal/rbac"
)

func newTestRouter(readiness map[string]ReadinessCheck) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := rbac.NewGuard(rbac.DefaultMatrix())
	return NewRouter(RouterParams{
		Logger:             logger,
		Config:             &Config{AppEnv: "test"},
		RBACMiddleware:     rbac.Middleware{Guard: guard, Logger: logger},
		PermissionsHandler: rbac.NewPermissionsHandler(logger, guard),
		Readiness:          readiness,
		Metrics:            observability.NewMetrics(),
	})
}

func TestRouterHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "motorhub_http_requests_total")
}

func TestRouterRequiresActorOnV1(t *testing.T) {
	router := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/permissions?role=buyer", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/permissions/check?role=garage&permission=manage_own_bookings", nil)
	req.Header.Set(rbac.HeaderActorID, uuid.NewString())
	req.Header.Set(rbac.HeaderActorRole, "buyer")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"role":"garage","permission":"manage_own_bookings","allowed":true}`, rr.Body.String())
}

func TestRouterReadiness(t *testing.T) {
	router := newTestRouter(map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	router = newTestRouter(map[string]ReadinessCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"check":"redis"`)
}
