package events

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
	// Attributes returns a flat string view of the event payload suitable
	// for logs and downstream notification sinks.
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers,
// notification buses). The ledger never waits for acknowledgement.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default sink when the host does not care about notifications.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
