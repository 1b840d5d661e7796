package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/storage/memory"
)

func newAdminRouter(t *testing.T) (chi.Router, *memory.Store) {
	t.Helper()
	store := memory.New()

	resolver := &fakeResolver{sessions: map[string]*auth.Identity{
		"tok-ana":   {UserID: "u1", Name: "Ana Duarte"},
		"tok-admin": {UserID: "staff", Name: "Staff", IsAdmin: true},
	}}

	r := chi.NewRouter()
	r.Use(Sessions(resolver))
	(&AdminHandler{
		Statuses: &orders.StatusService{Orders: store, Service: "storefront-test", Logger: zap.NewNop()},
		Logger:   zap.NewNop(),
	}).Register(r)
	return r, store
}

func patchStatus(r chi.Router, token, orderID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/"+orderID+"/status", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAdminUpdateStatus(t *testing.T) {
	t.Run("anonymous is 401", func(t *testing.T) {
		r, _ := newAdminRouter(t)
		if rec := patchStatus(r, "", "o1", `{"status":"CONFIRMED"}`); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("non-admin is 403", func(t *testing.T) {
		r, _ := newAdminRouter(t)
		if rec := patchStatus(r, "tok-ana", "o1", `{"status":"CONFIRMED"}`); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("unknown status is 400", func(t *testing.T) {
		r, _ := newAdminRouter(t)
		if rec := patchStatus(r, "tok-admin", "o1", `{"status":"SHIPPED"}`); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("valid transition moves the order", func(t *testing.T) {
		r, store := newAdminRouter(t)
		err := store.Insert(context.Background(), &orders.Order{
			ID: "o1", OrderNumber: "AD2508-123AB", UserID: "u1",
			Status: orders.StatusPending, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}

		rec := patchStatus(r, "tok-admin", "o1", `{"status":"CONFIRMED"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var got orders.Order
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if got.Status != orders.StatusConfirmed {
			t.Fatalf("status = %s, want CONFIRMED", got.Status)
		}
	})

	t.Run("state-machine violation is 409", func(t *testing.T) {
		r, store := newAdminRouter(t)
		err := store.Insert(context.Background(), &orders.Order{
			ID: "o1", OrderNumber: "AD2508-123AB", UserID: "u1",
			Status: orders.StatusPending, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}

		if rec := patchStatus(r, "tok-admin", "o1", `{"status":"READY"}`); rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		r, _ := newAdminRouter(t)
		if rec := patchStatus(r, "tok-admin", "missing", `{"status":"CONFIRMED"}`); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
