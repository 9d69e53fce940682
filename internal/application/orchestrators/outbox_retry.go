package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainOutbox "statusboard/internal/domain/outbox"
)

// Backoff between delivery attempts.
const (
	outboxBaseDelay = 30 * time.Second
	outboxMaxDelay  = 1 * time.Hour
	outboxBatchSize = 100
)

// OutboxStoreForRetry is the slice of the outbox store the retry loop needs.
type OutboxStoreForRetry interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the external ID (e.g., provider message id) and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxRetryDeps provides the dependencies for delivering outbox entries.
type OutboxRetryDeps struct {
	OutboxStore OutboxStoreForRetry
	Executors   map[string]ActionExecutor // keyed by action type
	Now         func() time.Time
}

// OutboxRetryResult counts what one pass did.
type OutboxRetryResult struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int // still backing off
}

// ExecuteOutboxRetry delivers pending entries whose backoff has elapsed.
// PRE: Deps are valid and store is connected
// POST: Every due entry was attempted once and saved with its new status
func ExecuteOutboxRetry(ctx context.Context, deps OutboxRetryDeps) (OutboxRetryResult, error) {
	var res OutboxRetryResult
	entries, err := deps.OutboxStore.ListPending(ctx, outboxBatchSize)
	if err != nil {
		return res, fmt.Errorf("list pending outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return res, nil
	}

	now := deps.Now()
	for _, entry := range entries {
		if !entry.CanRetry() {
			continue
		}
		if next := entry.NextAttemptAt(outboxBaseDelay, outboxMaxDelay); now.Before(next) {
			res.Skipped++
			slog.Debug("outbox_retry_skipped_backoff", "entry_id", entry.ID, "next_retry", next)
			continue
		}
		res.Processed++
		entry.MarkAttempt(now)

		var externalID string
		executor, ok := deps.Executors[entry.ActionType]
		if ok {
			externalID, err = executor.Execute(ctx, entry.Payload)
		} else {
			err = fmt.Errorf("unknown action type: %s", entry.ActionType)
		}

		if err != nil {
			entry.MarkFailed(err)
			res.Failed++
			slog.Error("outbox_retry_failed", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts, "error", err.Error())
		} else {
			entry.MarkSuccess(externalID)
			res.Succeeded++
			slog.Info("outbox_retry_succeeded", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts)
		}

		if saveErr := deps.OutboxStore.Save(ctx, entry); saveErr != nil {
			slog.Error("outbox_retry_save_failed", "entry_id", entry.ID, "error", saveErr.Error())
		}
	}

	if res.Processed > 0 {
		slog.Info("outbox_retry_complete", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped)
	}
	return res, nil
}

// DefaultOutboxRetryInterval is how often the scheduler polls the outbox.
const DefaultOutboxRetryInterval = 15 * time.Second

// StartOutboxRetryScheduler runs ExecuteOutboxRetry every interval until ctx
// is cancelled or the returned stop function is called.
// PRE: deps are initialized
// POST: Goroutine started, returns stop function that waits for it to exit
func StartOutboxRetryScheduler(ctx context.Context, deps OutboxRetryDeps, interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultOutboxRetryInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ExecuteOutboxRetry(ctx, deps); err != nil {
					slog.Error("outbox_retry_scheduler_error", "error", err.Error())
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
