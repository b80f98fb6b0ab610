package persist

import (
	"sync"

	"github.com/google/uuid"
)

// EventType identifies a Manager lifecycle notification.
type EventType string

const (
	// EventLoaded fires after a successful load; payload is the
	// restored tree (map[string]any).
	EventLoaded EventType = "loaded"

	// EventSaved fires after a successful save; payload is a SaveResult.
	EventSaved EventType = "saved"

	// EventCleared fires after the persisted entry is removed; no payload.
	EventCleared EventType = "cleared"

	// EventError fires for every handled failure; payload is the error.
	EventError EventType = "error"

	// EventMigrated fires once per applied migration step; payload is a
	// MigrationStep.
	EventMigrated EventType = "migrated"
)

// Event is one Manager notification.
type Event struct {
	Type    EventType
	Payload any
}

// SaveResult is the payload of an EventSaved.
type SaveResult struct {
	Size       int  `json:"size"` // stored bytes, after compression if enabled
	Compressed bool `json:"compressed"`
}

// EventHandler receives Manager events synchronously, inside the
// operation that produced them.
type EventHandler func(Event)

type eventSubscriber struct {
	id      string
	handler EventHandler
}

// emitter fans events out to registered handlers in registration order.
// A panicking handler is recovered so it cannot block the rest.
type emitter struct {
	mu   sync.RWMutex
	subs []eventSubscriber
}

func (e *emitter) subscribe(handler EventHandler) func() {
	id := uuid.New().String()

	e.mu.Lock()
	e.subs = append(e.subs, eventSubscriber{id: id, handler: handler})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, sub := range e.subs {
			if sub.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	subs := make([]eventSubscriber, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, sub := range subs {
		func() {
			defer func() { _ = recover() }()
			sub.handler(ev)
		}()
	}
}
