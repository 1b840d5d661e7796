package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acougue-online/storefront/internal/redisx"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is what the external identity provider resolves a session to.
// UserID is the stable key used for cart and order ownership; email is
// display data only.
type Identity struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// SessionStore resolves opaque bearer tokens against the session records the
// identity provider writes into Redis. Sessions slide: every successful
// resolve pushes the expiry out by TTL.
type SessionStore struct {
	RDB *redis.Client
	TTL time.Duration // falls back to redisx.TTLSession when zero
}

func (s *SessionStore) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	key := fmt.Sprintf(redisx.KeySession, token)
	data, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	ttl := s.TTL
	if ttl == 0 {
		ttl = redisx.TTLSession
	}
	_ = s.RDB.Expire(ctx, key, ttl).Err()
	return &id, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
