package navigator

// EventKind names a state change.
type EventKind string

const (
	EventLoaded           EventKind = "loaded"
	EventMoved            EventKind = "moved"
	EventLabelEdited      EventKind = "label_edited"
	EventValidationEdited EventKind = "validation_edited"
	EventExported         EventKind = "exported"
)

// Event describes a change after it has been applied.
type Event struct {
	Kind     EventKind
	Cursor   int
	Total    int
	FileName string
	// Value is the new field value for edit events.
	Value string
}

// Observer is notified synchronously after every state change.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
