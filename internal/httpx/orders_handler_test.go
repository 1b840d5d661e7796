package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/redisx/redistest"
	"github.com/acougue-online/storefront/internal/storage/memory"
)

func newOrdersRouter(t *testing.T) (chi.Router, *memory.Store) {
	t.Helper()
	return newOrdersRouterWithRedis(t, nil)
}

func newOrdersRouterWithRedis(t *testing.T, rdb *redis.Client) (chi.Router, *memory.Store) {
	t.Helper()
	store := memory.New()

	resolver := &fakeResolver{sessions: map[string]*auth.Identity{
		"tok-ana":   {UserID: "u1", Name: "Ana Duarte"},
		"tok-bruno": {UserID: "u2", Name: "Bruno Costa"},
		"tok-admin": {UserID: "staff", Name: "Staff", IsAdmin: true},
	}}

	r := chi.NewRouter()
	r.Use(Sessions(resolver))
	(&OrdersHandler{Store: store, Redis: rdb, Logger: zap.NewNop()}).Register(r)
	return r, store
}

func seedOrder(t *testing.T, store *memory.Store, id, userID string) {
	t.Helper()
	err := store.Insert(context.Background(), &orders.Order{
		ID:          id,
		OrderNumber: "AD2508-123-" + id,
		UserID:      userID,
		Status:      orders.StatusPending,
		TotalCents:  100,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestOrdersHandler(t *testing.T) {
	t.Run("GET /orders requires a session", func(t *testing.T) {
		r, _ := newOrdersRouter(t)
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("GET /orders lists only the caller's orders", func(t *testing.T) {
		r, store := newOrdersRouter(t)
		seedOrder(t, store, "o1", "u1")
		seedOrder(t, store, "o2", "u2")

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer tok-ana")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out []orders.Order
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if len(out) != 1 || out[0].ID != "o1" {
			t.Fatalf("unexpected list: %+v", out)
		}
	})

	t.Run("GET /orders/{id} hides other users' orders", func(t *testing.T) {
		r, store := newOrdersRouter(t)
		seedOrder(t, store, "o1", "u1")

		req := httptest.NewRequest(http.MethodGet, "/orders/o1", nil)
		req.Header.Set("Authorization", "Bearer tok-bruno")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for someone else's order, got %d", rec.Code)
		}
	})

	t.Run("GET /orders/{id} works for owner and admin", func(t *testing.T) {
		r, store := newOrdersRouter(t)
		seedOrder(t, store, "o1", "u1")

		for _, token := range []string{"tok-ana", "tok-admin"} {
			req := httptest.NewRequest(http.MethodGet, "/orders/o1", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("token %s: expected 200, got %d", token, rec.Code)
			}
		}
	})

	t.Run("GET /orders/{id} unknown order is 404", func(t *testing.T) {
		r, _ := newOrdersRouter(t)
		req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
		req.Header.Set("Authorization", "Bearer tok-ana")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestOrderStatusEndpoint(t *testing.T) {
	t.Run("returns the status to the owner", func(t *testing.T) {
		r, store := newOrdersRouter(t)
		seedOrder(t, store, "o1", "u1")

		req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
		req.Header.Set("Authorization", "Bearer tok-ana")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if out["status"] != string(orders.StatusPending) {
			t.Fatalf("unexpected status body: %v", out)
		}
	})

	t.Run("hides other users' orders", func(t *testing.T) {
		r, store := newOrdersRouter(t)
		seedOrder(t, store, "o1", "u1")

		req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
		req.Header.Set("Authorization", "Bearer tok-bruno")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for someone else's order, got %d", rec.Code)
		}
	})

	t.Run("never serves a warm cache entry across users", func(t *testing.T) {
		srv := redistest.New(t)
		srv.Set("order_status:u1:o1", `{"status":"PENDING"}`)

		r, store := newOrdersRouterWithRedis(t, srv.Client())
		seedOrder(t, store, "o1", "u1")

		req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
		req.Header.Set("Authorization", "Bearer tok-bruno")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 despite the warm cache, got %d", rec.Code)
		}
	})

	t.Run("serves the owner from the cache", func(t *testing.T) {
		srv := redistest.New(t)
		srv.Set("order_status:u1:o1", `{"status":"CONFIRMED"}`)

		// nothing in the store: a 200 can only come from the cache
		r, _ := newOrdersRouterWithRedis(t, srv.Client())

		req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
		req.Header.Set("Authorization", "Bearer tok-ana")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from the cache, got %d", rec.Code)
		}
		var out map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if out["status"] != string(orders.StatusConfirmed) {
			t.Fatalf("unexpected status body: %v", out)
		}
	})

	t.Run("fills the cache under the owner's key after a read", func(t *testing.T) {
		srv := redistest.New(t)
		r, store := newOrdersRouterWithRedis(t, srv.Client())
		seedOrder(t, store, "o1", "u1")

		req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
		req.Header.Set("Authorization", "Bearer tok-ana")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if _, ok := srv.Get("order_status:u1:o1"); !ok {
			t.Fatal("expected the status to be cached for the owner")
		}
	})
}
