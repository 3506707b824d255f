package bus

import (
	"context"
	"sync"

	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// Memory is an in-process Bus. Publish dispatches synchronously to
// every subscriber, which makes single-process deployments and tests
// deterministic.
type Memory struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{}
}

func (b *Memory) Publish(ctx context.Context, e *events.Event) error {
	b.mu.RLock()
	handlers := b.handlers
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil
	}
	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
	return nil
}

func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
