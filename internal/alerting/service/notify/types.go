package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification is a persisted, user-facing record of an event: a new or
// identified feedback submission, a rule breach or a keyword match. Created
// once by the recorder and only mutated by the inbox (read flags) afterwards.
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Severity   string     `json:"severity"`
	FeedbackID *uuid.UUID `json:"feedbackId"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// InboxStore persists and serves notification records.
type InboxStore interface {
	Insert(ctx context.Context, n *Notification) error
	InsertBatch(ctx context.Context, ns []*Notification) error
	List(ctx context.Context, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// CategorySource resolves a category label for notification messages.
// A missing category returns ok=false, never an error the recorder acts on.
type CategorySource interface {
	CategoryName(ctx context.Context, id uuid.UUID) (string, bool, error)
}

// CooldownCache bounds duplicate breach notifications. TryAcquire returns
// true when the key was not seen within the TTL (and marks it); a cache that
// always returns true restores the original record-every-run behavior.
// Release undoes an acquire so a failed insert does not suppress the retry.
type CooldownCache interface {
	TryAcquire(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}
