package rbac

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestMiddleware() Middleware {
	return Middleware{
		Guard:  NewGuard(DefaultMatrix()),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIdentifyRejectsMissingOrUnknownRole(t *testing.T) {
	mw := newTestMiddleware()
	handler := mw.Identify(okHandler())

	cases := []struct {
		name string
		id   string
		role string
		want int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bad id", id: "42", role: "buyer", want: http.StatusUnauthorized},
		{name: "unknown role", id: uuid.NewString(), role: "root", want: http.StatusUnauthorized},
		{name: "ok", id: uuid.NewString(), role: "Garage", want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != "" {
				req.Header.Set(HeaderActorID, tc.id)
			}
			if tc.role != "" {
				req.Header.Set(HeaderActorRole, tc.role)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestRequireAny(t *testing.T) {
	mw := newTestMiddleware()
	handler := mw.RequireAny(PermApprovePromotions, " Approve_Promotions ")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), Actor{ID: uuid.New(), Role: RoleSeller}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), Actor{ID: uuid.New(), Role: RoleAdmin}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", rr.Code)
	}
}

func TestRequireAllWithoutActor(t *testing.T) {
	mw := newTestMiddleware()
	handler := mw.RequireAll(PermViewListings)(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireAnyUnmappedRoleIsServerError(t *testing.T) {
	mw := newTestMiddleware()
	handler := mw.RequireAny(PermViewListings)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), Actor{ID: uuid.New(), Role: Role("ghost")}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestPermissionsHandler(t *testing.T) {
	mw := newTestMiddleware()
	h := NewPermissionsHandler(mw.Logger, mw.Guard)
	r := chi.NewRouter()
	r.Route("/v1/permissions", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/permissions?role=garage", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var listed permissionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listed.Role != RoleGarage || len(listed.Permissions) == 0 {
		t.Fatalf("unexpected body %+v", listed)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/permissions/check?role=buyer&permission=manage_service_bookings", nil))
	var checked checkResponse
	if err := json.NewDecoder(rr.Body).Decode(&checked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if checked.Allowed {
		t.Fatalf("buyer must not manage service bookings")
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/permissions?role=wizard", nil))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}
