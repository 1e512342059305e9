package audit

import (
	"context"
	"sync"
)

// MemoryPublisher keeps events in process. Used by tests and when no broker is
// configured.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
	err    error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// FailWith makes subsequent Publish calls return err.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published.
func (p *MemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Event(nil), p.events...)
}

// ByAction filters published events.
func (p *MemoryPublisher) ByAction(action string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, e := range p.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
