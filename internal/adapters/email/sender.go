package email

import (
	"context"
	"time"
)

// SendRequest is one message handed to an external provider.
type SendRequest struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"` // overrides the sender default, e.g. "Status Board <status@example.com>"
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages. SendBatch sends each request as its own message.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
