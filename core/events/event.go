package events

import "parbond/core/types"

// Event represents a structured state change emitted by the engine. Event
// converts the typed payload into the flat attribute form consumed by the
// settlement ledger and other generic subscribers.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, the
// settlement ledger, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
