package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"statusboard/internal/domain/gate"
)

// memKV is an in-memory kv.Store for testing.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// TestRateLimiter_Allow verifies the bucket drains and refills.
func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request in the same interval should be refused")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Error("bucket should refill after one interval")
	}
}

// TestRateLimiter_SteadyTraffic verifies a client below the limit is never
// refused, even when every request arrives within one interval of the last.
func TestRateLimiter_SteadyTraffic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, time.Second)
	rl.now = func() time.Time { return now }

	denied := 0
	for i := 0; i < 60; i++ {
		if !rl.Allow("a") {
			denied++
		}
		now = now.Add(500 * time.Millisecond)
	}
	if denied != 0 {
		t.Errorf("denied %d of 60 requests at 2 req/s with a limit of 10 req/s", denied)
	}
}

// TestRateLimiter_RefillsWhileBusy verifies a drained bucket refills after
// one interval even when refused requests keep arriving.
func TestRateLimiter_RefillsWhileBusy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Second)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	allowed := 0
	for i := 0; i < 10; i++ {
		now = now.Add(200 * time.Millisecond)
		if rl.Allow("a") {
			allowed++
		}
	}
	// Refills at 1s and 2s: three requests from the first, the request at 2s from the second.
	if allowed != 4 {
		t.Errorf("allowed %d requests over two busy seconds, want 4", allowed)
	}
}

// TestRateLimit_Returns429 verifies refused requests get 429.
func TestRateLimit_Returns429(t *testing.T) {
	handler := RateLimit(NewRateLimiter(1, time.Hour))(okHandler(http.StatusOK))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rr.Code)
	}

	req.RemoteAddr = "10.0.0.1:5678"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", rr.Code)
	}
}

// TestSecurityHeaders verifies the headers are set on every response.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

// TestCSRF_ExemptsJSON verifies JSON posts bypass the token check while forms do not.
func TestCSRF_ExemptsJSON(t *testing.T) {
	key := []byte(strings.Repeat("k", 32))
	handler := CSRF(key, CSRFOptions{})(okHandler(http.StatusOK))

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("json status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest("POST", "/dashboard/login", strings.NewReader("passphrase=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("form status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("DELETE", "/api/updates/1", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", rr.Code)
	}
}

// TestSessionStore verifies created tokens unlock and unknown ones do not.
func TestSessionStore(t *testing.T) {
	mem := newMemKV()
	ss := NewSessionStore(mem)
	ctx := context.Background()

	token, err := ss.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := mem.data[FlagKeyPrefix+token]; got != gate.FlagValue {
		t.Errorf("stored flag = %q, want %q", got, gate.FlagValue)
	}

	tests := []struct {
		name  string
		token string
		want  gate.Screen
	}{
		{"created token", token, gate.ScreenLoggedIn},
		{"empty token", "", gate.ScreenLoggedOut},
		{"unknown token", "nope", gate.ScreenLoggedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ss.Screen(ctx, tt.token)
			if err != nil {
				t.Fatalf("Screen: %v", err)
			}
			if got != tt.want {
				t.Errorf("Screen = %q, want %q", got, tt.want)
			}
		})
	}

	mem.data[FlagKeyPrefix+"tampered"] = "yes"
	if got, _ := ss.Screen(ctx, "tampered"); got != gate.ScreenLoggedOut {
		t.Errorf("non-literal flag should not unlock, got %q", got)
	}
}

// TestAuthAndRequireGate verifies the cookie gates protected routes.
func TestAuthAndRequireGate(t *testing.T) {
	ss := NewSessionStore(newMemKV())
	token, err := ss.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	handler := Auth(ss)(RequireGate(okHandler(http.StatusOK)))

	tests := []struct {
		name     string
		path     string
		cookie   string
		wantCode int
	}{
		{"unlocked api", "/api/updates", token, http.StatusOK},
		{"locked api", "/api/updates", "", http.StatusUnauthorized},
		{"locked page", "/dashboard/updates", "", http.StatusSeeOther},
		{"bogus cookie", "/api/updates", "bogus", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: GateCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

// TestSetGateCookie verifies cookie attributes.
func TestSetGateCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	SetGateCookie(rr, "tok")
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != GateCookieName || c.Value != "tok" || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("unexpected cookie %+v", c)
	}
}
