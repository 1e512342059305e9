package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned when the async buffer cannot take another event.
var ErrQueueFull = errors.New("audit queue full")

// AsyncPublisher decouples request latency from the sink. Publish enqueues;
// Run drains the queue into the wrapped publisher until ctx is done.
type AsyncPublisher struct {
	sink   Publisher
	inbox  chan Event
	logger *slog.Logger
}

func NewAsyncPublisher(sink Publisher, buffer int, logger *slog.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AsyncPublisher{sink: sink, inbox: make(chan Event, buffer), logger: logger}
}

// Publish never blocks.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events. On cancellation it flushes what is already
// buffered using a background context, then returns ctx.Err().
func (p *AsyncPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		case event := <-p.inbox:
			p.deliver(ctx, event)
		}
	}
}

func (p *AsyncPublisher) drain() {
	for {
		select {
		case event := <-p.inbox:
			p.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (p *AsyncPublisher) deliver(ctx context.Context, event Event) {
	if err := p.sink.Publish(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit event dropped",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}
