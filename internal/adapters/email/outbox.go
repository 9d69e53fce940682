package email

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"statusboard/internal/domain/outbox"
	"statusboard/internal/domain/tracker"
)

// OutboxWriter persists queued deliveries.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// QueuedAnnouncer writes one outbox entry per announcement message instead
// of sending directly. OutboxExecutor delivers them later.
type QueuedAnnouncer struct {
	announcer *Announcer
	outbox    OutboxWriter
	now       func() time.Time
}

// NewQueuedAnnouncer creates a QueuedAnnouncer. now stamps new entries.
func NewQueuedAnnouncer(a *Announcer, w OutboxWriter, now func() time.Time) *QueuedAnnouncer {
	if now == nil {
		now = time.Now
	}
	return &QueuedAnnouncer{announcer: a, outbox: w, now: now}
}

// Announce queues the announcement of u.
// POST: one pending email entry per recipient
func (q *QueuedAnnouncer) Announce(ctx context.Context, u tracker.Update) error {
	reqs, err := q.announcer.Messages(u)
	if err != nil {
		return err
	}
	for _, req := range reqs {
		payload, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("encode announcement: %w", err)
		}
		e := outbox.NewEntry(uuid.NewString(), outbox.ActionTypeEmail, string(payload), q.now())
		if err := q.outbox.Save(ctx, e); err != nil {
			return fmt.Errorf("queue announcement: %w", err)
		}
	}
	return nil
}

// OutboxExecutor sends queued email entries through a Sender.
type OutboxExecutor struct {
	sender Sender
}

// NewOutboxExecutor creates an OutboxExecutor.
func NewOutboxExecutor(sender Sender) *OutboxExecutor {
	return &OutboxExecutor{sender: sender}
}

// Execute decodes payload as a SendRequest and sends it.
// POST: returns the provider message id on success
func (x *OutboxExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var req SendRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("decode email payload: %w", err)
	}
	res, err := x.sender.Send(ctx, req)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
