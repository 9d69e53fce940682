package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	emailPkg "statusboard/internal/adapters/email"
	web "statusboard/internal/adapters/http"
	"statusboard/internal/adapters/http/middleware"
	"statusboard/internal/adapters/http/perf"
	"statusboard/internal/adapters/storage"
	auditStore "statusboard/internal/adapters/storage/audit"
	"statusboard/internal/adapters/storage/kv"
	outboxStorePkg "statusboard/internal/adapters/storage/outbox"
	trackerStore "statusboard/internal/adapters/storage/tracker"
	"statusboard/internal/application/orchestrators"
	"statusboard/internal/config"
	domainOutbox "statusboard/internal/domain/outbox"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr, env string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("env") {
				cfg.Server.Env = env
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&env, "env", "", "environment name; \"production\" enables strict checks")
	return cmd
}

// serve wires storage, the gate, announcements and the HTTP stack, then
// blocks until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := storage.Open(cfg.Data.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.MigrateDB(ctx, db); err != nil {
		return err
	}
	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultWindow)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery())
	store := kv.NewSQLiteStore(timedDB)

	g, err := cfg.Gate()
	if err != nil {
		return err
	}
	csrfKey, generated, err := cfg.CSRFKey()
	if err != nil {
		return err
	}
	if generated {
		log.Println("CSRF key generated for this run (set STATUSBOARD_CSRF_KEY to keep forms valid across restarts)")
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Server.Timezone, err)
	}

	deps := &web.Deps{
		StateStore: trackerStore.NewKVStore(store, time.Now),
		Sessions:   middleware.NewSessionStore(store),
		Gate:       g,
		Collector:  collector,
		Audit:      auditStore.NewSQLiteStore(timedDB),
		Location:   loc,
	}

	// Configure update announcements: queued in the outbox, delivered in the background
	if len(cfg.Email.AnnounceTo) > 0 {
		var sender emailPkg.Sender
		if cfg.Email.ResendKey != "" {
			sender = emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
			log.Println("Email sender configured (Resend)")
		} else {
			sender = emailPkg.NewNoopSender()
			log.Println("Email sender configured (noop, set STATUSBOARD_RESEND_KEY for real delivery)")
		}
		box := outboxStorePkg.NewSQLiteStore(timedDB)
		deps.Outbox = box
		deps.Announcer = emailPkg.NewQueuedAnnouncer(
			emailPkg.NewAnnouncer(sender, cfg.Email.AnnounceTo, cfg.Server.BaseURL), box, time.Now)

		stopOutbox := orchestrators.StartOutboxRetryScheduler(ctx, orchestrators.OutboxRetryDeps{
			OutboxStore: box,
			Executors: map[string]orchestrators.ActionExecutor{
				domainOutbox.ActionTypeEmail: emailPkg.NewOutboxExecutor(sender),
			},
			Now: time.Now,
		}, orchestrators.DefaultOutboxRetryInterval)
		defer stopOutbox()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: web.NewMux(deps, web.Options{
			CSRFKey:     csrfKey,
			Secure:      cfg.IsProduction(),
			RateLimit:   cfg.Server.RateLimit,
			SlowRequest: cfg.SlowRequest(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Statusboard %s starting on %s (env=%s, schema=%d)", version, cfg.Server.Addr, cfg.Server.Env, storage.LatestSchemaVersion())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
