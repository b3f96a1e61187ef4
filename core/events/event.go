package events

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Record is the generic, broadcastable form of an event.
type Record struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Log buffers the events emitted while a block is processed. Like the state
// Manager it belongs to the block writer and is not safe for concurrent use.
type Log struct {
	records []Record
}

// Emit implements the Emitter interface. Events that know their generic
// form are converted; others are recorded with their type only.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	if provider, ok := evt.(interface{ Event() *Record }); ok {
		if payload := provider.Event(); payload != nil {
			l.append(*payload)
		}
		return
	}
	l.append(Record{Type: evt.EventType(), Attributes: map[string]string{}})
}

func (l *Log) append(r Record) {
	attrs := make(map[string]string, len(r.Attributes))
	for k, v := range r.Attributes {
		attrs[k] = v
	}
	l.records = append(l.records, Record{Type: r.Type, Attributes: attrs})
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}

// Drain returns the buffered events in emission order and resets the log.
func (l *Log) Drain() []Record {
	if l == nil {
		return nil
	}
	out := l.records
	l.records = nil
	return out
}
