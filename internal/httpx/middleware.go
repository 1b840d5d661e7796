package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/acougue-online/storefront/internal/auth"
)

// SessionResolver resolves a bearer token to an identity.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
}

// Sessions attaches the resolved identity to the request context. A missing
// or invalid token leaves the request anonymous; each handler decides whether
// that is a hard failure (mutations) or a soft one (reads).
func Sessions(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				id, err := resolver.Resolve(r.Context(), token)
				if err == nil {
					r = r.WithContext(auth.WithIdentity(r.Context(), id))
				} else if !errors.Is(err, auth.ErrUnauthenticated) {
					writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session lookup failed"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

// requireUser returns the identity or answers 401.
func requireUser(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return nil, false
	}
	return id, true
}

// requireAdmin returns the identity or answers 401/403.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !id.IsAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
		return nil, false
	}
	return id, true
}
