package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acougue-online/storefront/internal/redisx/redistest"
)

func TestSessionStoreResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a valid token and refreshes its expiry", func(t *testing.T) {
		srv := redistest.New(t)
		srv.Set("session:tok-ana", `{"user_id":"u1","name":"Ana Duarte","is_admin":false}`)
		s := &SessionStore{RDB: srv.Client(), TTL: time.Hour}

		id, err := s.Resolve(ctx, "tok-ana")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if id.UserID != "u1" || id.Name != "Ana Duarte" || id.IsAdmin {
			t.Fatalf("unexpected identity: %+v", id)
		}
		if got := srv.Expired(); len(got) != 1 || got[0] != "session:tok-ana" {
			t.Fatalf("expected the session expiry to slide, got %v", got)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		srv := redistest.New(t)
		s := &SessionStore{RDB: srv.Client()}
		if _, err := s.Resolve(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		srv := redistest.New(t)
		s := &SessionStore{RDB: srv.Client()}
		if _, err := s.Resolve(ctx, "tok-missing"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
		if len(srv.Expired()) != 0 {
			t.Fatal("expiry must not slide for a miss")
		}
	})

	t.Run("malformed session record", func(t *testing.T) {
		srv := redistest.New(t)
		srv.Set("session:tok-bad", "not json")
		s := &SessionStore{RDB: srv.Client()}
		if _, err := s.Resolve(ctx, "tok-bad"); err == nil {
			t.Fatal("expected an error for a malformed record")
		}
	})

	t.Run("record without a user id", func(t *testing.T) {
		srv := redistest.New(t)
		srv.Set("session:tok-ghost", `{"name":"Ghost"}`)
		s := &SessionStore{RDB: srv.Client()}
		if _, err := s.Resolve(ctx, "tok-ghost"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}
