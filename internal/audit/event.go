// Package audit records screening outcomes. Events are transport-agnostic so
// sinks (Kafka, memory) can be swapped without touching domain code.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the service.
const (
	ActionDecisionMade       = "decision_made"
	ActionTextClassified     = "text_classified"
	ActionTransactionSettled = "transaction_settled"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	Country   string    `json:"country,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Score     float64   `json:"score"`
	RequestID string    `json:"request_id,omitempty"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder stamps events and publishes them fail-open: a sink failure is
// logged and never reaches the caller.
type Recorder struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder returns a Recorder. A nil publisher discards events.
func NewRecorder(publisher Publisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{publisher: publisher, logger: logger, now: time.Now}
}

// Emit fills ID and Timestamp when unset and publishes the event.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if r == nil || r.publisher == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now().UTC()
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "audit publish failed",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}
