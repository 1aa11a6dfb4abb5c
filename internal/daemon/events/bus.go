// Package events carries active-status transitions from the arbitration
// core to presentation adapters.
package events

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/presenced/internal/status"
)

// Bus is a small in-process fan-out for ActiveChange events.
//
// Design goals:
//   - Bounded buffering/backpressure (Publish blocks until delivered or ctx canceled)
//   - Clean shutdown (Close closes all subscription channels)
//
// It is intentionally not durable; the transition history store covers that.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]chan status.ActiveChange
	nextID uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan status.ActiveChange)}
}

// Subscribe registers a buffered subscription. The returned cancel func is
// idempotent and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan status.ActiveChange, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan status.ActiveChange, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.nextID++
	id := b.nextID
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the change to every subscriber, blocking per subscriber
// until the buffer accepts it or ctx is canceled. The bus lock is held for
// the whole delivery so cancel/Close can never close a channel mid-send.
func (b *Bus) Publish(ctx context.Context, change status.ActiveChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	for _, ch := range b.subs {
		select {
		case ch <- change:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close shuts down the bus and closes all subscription channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
