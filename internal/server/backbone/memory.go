package backbone

import (
	"context"
	"sync"
)

// MemoryBackbone is an in-process Backbone used in tests and single-instance
// development runs. It preserves the delivery contract of the Redis
// implementation: every subscriber receives every envelope, including the
// publisher's own instance.
type MemoryBackbone struct {
	mu     sync.Mutex
	subs   []chan Envelope
	closed bool
}

func NewMemoryBackbone() *MemoryBackbone {
	return &MemoryBackbone{}
}

func (b *MemoryBackbone) Publish(ctx context.Context, env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs {
		select {
		case sub <- env:
		default:
			// a stalled subscriber does not block the others
		}
	}
	return nil
}

func (b *MemoryBackbone) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	ch := make(chan Envelope, 256)
	b.subs = append(b.subs, ch)
	return ch, nil
}

func (b *MemoryBackbone) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

func (b *MemoryBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
	return nil
}
