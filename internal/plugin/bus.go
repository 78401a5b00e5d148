package plugin

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventType names one kind of event carried on the Bus. Handlers
// subscribe per EventType; the payload shape is a contract between
// publisher and subscriber, not enforced by the bus itself.
type EventType string

const (
	EventFileCreated  EventType = "file_created"
	EventFileModified EventType = "file_modified"
	EventFileRemoved  EventType = "file_removed"
	EventBuildDone    EventType = "build_done"
)

// EventHandler processes one published event's payload.
type EventHandler func(payload any)

// Bus is a typed, heterogeneous publish/subscribe event bus: plugins
// and the host register interest per EventType, and Publish fans each
// event out to every matching handler concurrently. Grounded on
// spec.md §4.7's plugin event model and oxen's `sync.WaitGroup`
// fan-out idiom (generator/phase1.go's worker pool join pattern).
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]EventHandler)}
}

// Subscribe registers h to run whenever evt is published.
func (b *Bus) Subscribe(evt EventType, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[evt] = append(b.handlers[evt], h)
}

// Publish fans payload out to every handler subscribed to evt,
// concurrently, and waits for them all to finish. A handler that
// panics is recovered and logged; it never takes down its siblings or
// the caller.
func (b *Bus) Publish(evt EventType, payload any) {
	b.mu.RLock()
	hs := append([]EventHandler(nil), b.handlers[evt]...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, h := range hs {
		wg.Add(1)
		go func(h EventHandler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event bus handler panicked", "event", evt, "recover", r)
				}
			}()
			h(payload)
		}(h)
	}
	wg.Wait()
}

// RequestID mints a fresh identifier for an inbound Route request,
// per spec.md §4.7's "opaque request/response with stable IDs".
func RequestID() string {
	return uuid.NewString()
}
