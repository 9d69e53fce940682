//go:build browser

package web_test

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/crypto/bcrypt"

	web "statusboard/internal/adapters/http"
	"statusboard/internal/adapters/http/middleware"
	"statusboard/internal/adapters/http/perf"
	"statusboard/internal/adapters/storage"
	"statusboard/internal/adapters/storage/kv"
	trackerStore "statusboard/internal/adapters/storage/tracker"
	"statusboard/internal/domain/gate"
)

// startServer runs the full app on a free port and returns its base URL.
func startServer(t *testing.T) string {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.MigrateDB(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	g, err := gate.NewWithCost(gate.DefaultPassphrase, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	store := kv.NewSQLiteStore(db)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host := listener.Addr().String()

	mux := web.NewMux(&web.Deps{
		StateStore: trackerStore.NewKVStore(store, time.Now),
		Sessions:   middleware.NewSessionStore(store),
		Gate:       g,
		Collector:  perf.NewCollector(perf.DefaultWindow),
	}, web.Options{
		CSRFKey:        []byte(strings.Repeat("k", 32)),
		TrustedOrigins: []string{host},
		RateLimit:      1000,
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(listener)
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return "http://" + host
}

func newPage(t *testing.T) playwright.Page {
	t.Helper()
	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}
	page, err := browser.NewPage()
	if err != nil {
		t.Fatalf("failed to open page: %v", err)
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
	})
	return page
}

// TestBrowser_DashboardFlow unlocks the dashboard, moves a slider, posts an
// update and deletes it through the confirm dialog.
func TestBrowser_DashboardFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	baseURL := startServer(t)
	page := newPage(t)
	expect := playwright.NewPlaywrightAssertions()

	if _, err := page.Goto(baseURL + "/dashboard"); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if err := page.Locator("#passphrase").Fill(gate.DefaultPassphrase); err != nil {
		t.Fatalf("fill passphrase: %v", err)
	}
	if err := page.Locator("form[action='/dashboard/login'] button").Click(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := expect.Locator(page.GetByText("Post an update")).ToBeVisible(); err != nil {
		t.Fatalf("dashboard not shown: %v", err)
	}

	// One category at 100% moves the overall bar to 17%.
	if err := page.Locator("#progress-0").Fill("100"); err != nil {
		t.Fatalf("move slider: %v", err)
	}
	if err := expect.Locator(page.Locator("[data-testid=overall-progress]")).ToHaveText("17%"); err != nil {
		t.Errorf("overall progress: %v", err)
	}

	if err := page.Locator("#title").Fill("Cut-over scheduled"); err != nil {
		t.Fatalf("fill title: %v", err)
	}
	if err := page.Locator("#description").Fill("Saturday **night**"); err != nil {
		t.Fatalf("fill description: %v", err)
	}
	if err := page.Locator("form[action='/dashboard/updates'] button").Click(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := expect.Locator(page.Locator(".update h3")).ToHaveText("Cut-over scheduled"); err != nil {
		t.Fatalf("update not listed: %v", err)
	}

	// The public page shows the update and accepts an anonymous comment.
	if _, err := page.Goto(baseURL + "/"); err != nil {
		t.Fatalf("goto status: %v", err)
	}
	if err := page.Locator(".comment-form textarea").Fill("Thanks!"); err != nil {
		t.Fatalf("fill comment: %v", err)
	}
	if err := page.Locator(".comment-form button").Click(); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := expect.Locator(page.Locator(".comments li strong")).ToHaveText("anonymous"); err != nil {
		t.Errorf("comment author: %v", err)
	}

	// Delete via the confirm dialog.
	if _, err := page.Goto(baseURL + "/dashboard"); err != nil {
		t.Fatalf("goto dashboard: %v", err)
	}
	page.OnDialog(func(d playwright.Dialog) { d.Accept() })
	if err := page.Locator(".confirm-delete button").Click(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := expect.Locator(page.GetByText("No updates yet.")).ToBeVisible(); err != nil {
		t.Errorf("update not deleted: %v", err)
	}
}
