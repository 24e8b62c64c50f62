package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(ReshuffleEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the static type, so unwrap the interface.
	switch e := ev.(type) {
	case SlotStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case SourceOpenFailedEvent:
		event.Publish(b.dispatcher, e)
	case StreamLoopedEvent:
		event.Publish(b.dispatcher, e)
	case DecodeErrorEvent:
		event.Publish(b.dispatcher, e)
	case ReshuffleEvent:
		event.Publish(b.dispatcher, e)
	case PauseChangedEvent:
		event.Publish(b.dispatcher, e)
	case CatalogChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e PauseChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SlotStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SourceOpenFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamLoopedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DecodeErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReshuffleEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PauseChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CatalogChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
