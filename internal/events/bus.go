// Package events fans authentication changes out to the clients of a user.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/model"
)

// Handler receives an event published for a user.
type Handler func(event model.AuthEvent)

// Bus delivers per-user auth events.
type Bus interface {
	Publish(ctx context.Context, userID uuid.UUID, event model.AuthEvent) error
	Subscribe(userID uuid.UUID, fn Handler) (unsubscribe func())
}

var _ Bus = (*LocalBus)(nil)

// LocalBus delivers events to subscribers in this process.
type LocalBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uuid.UUID]map[uint64]Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[uuid.UUID]map[uint64]Handler)}
}

// Publish calls every handler subscribed to userID. Handlers run on the
// caller's goroutine, outside the bus lock.
func (b *LocalBus) Publish(_ context.Context, userID uuid.UUID, event model.AuthEvent) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[userID]))
	for _, h := range b.subs[userID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe registers fn for userID. The returned func is idempotent.
func (b *LocalBus) Subscribe(userID uuid.UUID, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[uint64]Handler)
	}
	b.subs[userID][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
		})
	}
}

// Subscribers returns the number of handlers registered for userID.
func (b *LocalBus) Subscribers(userID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
