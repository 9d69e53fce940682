package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"statusboard/internal/adapters/http/middleware"
	"statusboard/internal/adapters/http/perf"
	auditStore "statusboard/internal/adapters/storage/audit"
	"statusboard/internal/application/orchestrators"
	"statusboard/internal/domain/audit"
	"statusboard/internal/domain/outbox"
	"statusboard/internal/domain/tracker"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StateStore is the persistent store seen by the handlers.
type StateStore interface {
	Load(ctx context.Context) (tracker.State, error)
	Update(ctx context.Context, fn func(*tracker.State) error) (tracker.State, error)
}

// AuditLog records dashboard activity.
type AuditLog interface {
	Save(ctx context.Context, e audit.Event) error
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]audit.Event, error)
}

// OutboxLister reports queued deliveries.
type OutboxLister interface {
	ListPending(ctx context.Context, limit int) ([]outbox.Entry, error)
	ListFailed(ctx context.Context, limit int) ([]outbox.Entry, error)
}

// Deps holds everything the handlers need.
type Deps struct {
	StateStore StateStore
	Sessions   *middleware.SessionStore
	Gate       orchestrators.PassphraseChecker
	Announcer  orchestrators.Announcer // optional
	Collector  *perf.Collector         // optional
	Audit      AuditLog                // optional
	Outbox     OutboxLister            // optional
	Location   *time.Location          // optional: nil means UTC
}

// Options configures the middleware stack.
type Options struct {
	CSRFKey        []byte // 32 bytes
	Secure         bool   // HTTPS only cookies
	TrustedOrigins []string
	RateLimit      int // requests per second per client; 0 means RateLimitPerSecond
	SlowRequest    time.Duration
}

// Global dependencies (set by NewMux)
var app *Deps

// RateLimitPerSecond is the default per-client rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the app.
func NewMux(d *Deps, opts Options) http.Handler {
	app = d
	middleware.SecureCookies = opts.Secure

	rate := opts.RateLimit
	if rate <= 0 {
		rate = RateLimitPerSecond
	}
	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> mux
	return middleware.Chain(routes(),
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{Secure: opts.Secure, TrustedOrigins: opts.TrustedOrigins}),
		middleware.Auth(d.Sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(d.Collector, opts.SlowRequest),
	)
}

// routes registers every handler. Dashboard mutations sit behind RequireGate.
func routes() *http.ServeMux {
	mux := http.NewServeMux()

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	// Public
	mux.HandleFunc("GET /{$}", handleStatus)
	mux.HandleFunc("GET /api/state", handleAPIState)
	mux.HandleFunc("POST /updates/{id}/comments", handleAddComment)
	mux.HandleFunc("POST /api/updates/{id}/comments", handleAddComment)

	// Gate
	mux.HandleFunc("GET /dashboard", handleDashboard)
	mux.HandleFunc("POST /dashboard/login", handleLogin)
	mux.HandleFunc("POST /api/login", handleLogin)

	// Dashboard
	gated := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireGate(h))
	}
	gated("POST /dashboard/categories/{index}/progress", handleSetProgress)
	gated("PUT /api/categories/{index}/progress", handleSetProgress)
	gated("POST /dashboard/categories/{index}/status", handleSetStatus)
	gated("PUT /api/categories/{index}/status", handleSetStatus)
	gated("POST /dashboard/updates", handleAddUpdate)
	gated("POST /api/updates", handleAddUpdate)
	gated("POST /dashboard/updates/{id}/delete", handleDeleteUpdate)
	gated("DELETE /api/updates/{id}", handleDeleteUpdate)
	gated("GET /api/admin/export.xlsx", handleExport)
	gated("GET /api/admin/perf", handlePerf)
	gated("GET /api/admin/audit", handleAudit)
	gated("GET /api/admin/outbox", handleOutbox)

	return mux
}
