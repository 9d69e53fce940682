package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"statusboard/internal/adapters/storage/kv"
	"statusboard/internal/domain/gate"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const screenContextKey contextKey = "screen"

// FlagKeyPrefix prefixes the persisted authenticated flag of one browser.
const FlagKeyPrefix = "isAuthenticated:"

// GateCookieName is the cookie carrying the browser's flag token.
const GateCookieName = "statusboard_gate"

// SecureCookies controls the Secure attribute of the gate cookie.
var SecureCookies = false

// SessionStore persists the authenticated flag per browser in the kv store.
// Flags never expire; there is no logout.
type SessionStore struct {
	kv kv.Store
}

// NewSessionStore creates a SessionStore on top of store.
func NewSessionStore(store kv.Store) *SessionStore {
	return &SessionStore{kv: store}
}

// Create persists a new authenticated flag and returns its token.
// POST: Screen(token) == gate.ScreenLoggedIn
func (ss *SessionStore) Create(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := ss.kv.Set(ctx, FlagKeyPrefix+token, gate.FlagValue); err != nil {
		return "", fmt.Errorf("persist gate flag: %w", err)
	}
	return token, nil
}

// Screen returns the screen state recorded for token.
// PRE: none; unknown or empty tokens are logged out
func (ss *SessionStore) Screen(ctx context.Context, token string) (gate.Screen, error) {
	if token == "" {
		return gate.ScreenLoggedOut, nil
	}
	v, ok, err := ss.kv.Get(ctx, FlagKeyPrefix+token)
	if err != nil {
		return gate.ScreenLoggedOut, err
	}
	if !ok {
		return gate.ScreenLoggedOut, nil
	}
	return gate.ScreenFor(v), nil
}

// Auth resolves the gate cookie into a screen state on the request context.
// It never blocks; use RequireGate for that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			screen := gate.ScreenLoggedOut
			if cookie, err := r.Cookie(GateCookieName); err == nil {
				s, err := sessions.Screen(r.Context(), cookie.Value)
				if err == nil {
					screen = s
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithScreen(r.Context(), screen)))
		})
	}
}

// RequireGate blocks requests from browsers that have not unlocked the
// dashboard. JSON API calls get 401; pages are sent to the login screen.
func RequireGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsUnlocked(r.Context()) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ScreenFromContext returns the screen state set by Auth.
func ScreenFromContext(ctx context.Context) gate.Screen {
	if s, ok := ctx.Value(screenContextKey).(gate.Screen); ok {
		return s
	}
	return gate.ScreenLoggedOut
}

// IsUnlocked reports whether the request comes from an unlocked browser.
func IsUnlocked(ctx context.Context) bool {
	return ScreenFromContext(ctx) == gate.ScreenLoggedIn
}

// ContextWithScreen returns a context carrying screen.
// Intended for Auth and for tests.
func ContextWithScreen(ctx context.Context, screen gate.Screen) context.Context {
	return context.WithValue(ctx, screenContextKey, screen)
}

// SetGateCookie stores the flag token in the browser.
func SetGateCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GateCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   10 * 365 * 24 * 60 * 60,
	})
}
