package events

import (
	"reflect"

	"github.com/kelindar/event"
)

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Slow consumers lose events rather than stall publishers.
		}
	})
}

// SSETypes maps SSE event names to their payload types.
func SSETypes() map[string]any {
	return map[string]any{
		"slot-state-changed": SlotStateChangedEvent{},
		"source-open-failed": SourceOpenFailedEvent{},
		"stream-looped":      StreamLoopedEvent{},
		"decode-error":       DecodeErrorEvent{},
		"reshuffle":          ReshuffleEvent{},
		"pause-changed":      PauseChangedEvent{},
		"catalog-changed":    CatalogChangedEvent{},
	}
}

// SubscribeAll forwards every wall event to ch and returns one unsubscribe
// function for all of them.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubscribers := []func(){
		SubscribeToChannel[SlotStateChangedEvent](bus, ch),
		SubscribeToChannel[SourceOpenFailedEvent](bus, ch),
		SubscribeToChannel[StreamLoopedEvent](bus, ch),
		SubscribeToChannel[DecodeErrorEvent](bus, ch),
		SubscribeToChannel[ReshuffleEvent](bus, ch),
		SubscribeToChannel[PauseChangedEvent](bus, ch),
		SubscribeToChannel[CatalogChangedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

var eventNames = func() map[reflect.Type]string {
	names := make(map[reflect.Type]string)
	for name, ev := range SSETypes() {
		names[reflect.TypeOf(ev)] = name
	}
	return names
}()

// Name returns the stream name of an event value, or "" for unknown types.
func Name(ev any) string {
	return eventNames[reflect.TypeOf(ev)]
}
