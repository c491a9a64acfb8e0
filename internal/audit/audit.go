package audit

import (
	"context"
	"time"
)

// Event records one transfer execution attempt. Events exist for
// offline reconciliation; losing one never affects the user-visible
// outcome.
type Event struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id,omitempty"`
	AmountWei   string    `json:"amount_wei"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Outcome     string    `json:"outcome"`
	DryRun      bool      `json:"dry_run"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers transfer events to the audit sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop is the publisher used when no audit sink is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

var _ Publisher = Nop{}
