// Package auth implements HTTP Basic authentication against the user store.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
)

// DefaultCacheTTL bounds how long a verified password is trusted without
// running bcrypt again.
const DefaultCacheTTL = 5 * time.Minute

const defaultCacheSize = 256

// Authenticator is the slice of the user service that authentication needs.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (core.User, error)
	Resolve(ctx context.Context, id int64) (core.User, error)
}

// BasicAuth verifies Basic credentials. Successful verifications are cached
// by credential digest so repeated requests skip bcrypt; the user itself is
// reloaded on every request so deactivation takes effect immediately.
type BasicAuth struct {
	users    Authenticator
	verified *cache.LRUCache[int64]
	realm    string
}

func NewBasicAuth(users Authenticator, ttl time.Duration) *BasicAuth {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &BasicAuth{
		users:    users,
		verified: cache.NewLRUCache[int64](defaultCacheSize, ttl),
		realm:    "ledger",
	}
}

// Cache exposes the verified-credential cache so it can be registered with
// a cache.Manager for periodic cleanup.
func (a *BasicAuth) Cache() *cache.LRUCache[int64] { return a.verified }

// Check authenticates a username/password pair.
func (a *BasicAuth) Check(ctx context.Context, username, password string) (core.User, error) {
	key := credentialKey(username, password)
	if id, ok := a.verified.Get(key); ok {
		u, err := a.users.Resolve(ctx, id)
		if err == nil && u.Username == username {
			return u, nil
		}
		a.verified.Delete(key)
		if err != nil && !errors.Is(err, core.ErrUnauthenticated) {
			return core.User{}, err
		}
	}

	u, err := a.users.Authenticate(ctx, username, password)
	if err != nil {
		return core.User{}, err
	}
	a.verified.Set(key, u.ID)
	return u, nil
}

// Forget drops every cached verification for the user.
func (a *BasicAuth) Forget(userID int64) {
	a.verified.DeleteFunc(func(id int64) bool { return id == userID })
}

// Middleware rejects requests without valid credentials and stores the
// authenticated user in the request context.
func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			a.challenge(w, "authentication credentials were not provided")
			return
		}
		u, err := a.Check(r.Context(), username, password)
		if errors.Is(err, core.ErrUnauthenticated) {
			slog.WarnContext(r.Context(), "Authentication failed", "username", username, "path", r.URL.Path)
			a.challenge(w, "invalid username or password")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Authentication error", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func (a *BasicAuth) challenge(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+a.realm+`", charset="UTF-8"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func credentialKey(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

type ctxKey struct{}

func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the authenticated user stored by Middleware.
func UserFrom(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(core.User)
	return u, ok
}
