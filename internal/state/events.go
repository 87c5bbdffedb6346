package state

import "github.com/makstermee/Gym-planner/internal/workout"

// EventKind identifies a store notification.
type EventKind int

const (
	// EventHydrated follows Bind once the cached document is loaded.
	EventHydrated EventKind = iota + 1
	EventPhaseChanged
	// EventRemoteChanged carries a document ingested from the remote channel,
	// including the first snapshot of a binding.
	EventRemoteChanged
	EventLocalChanged
	EventWriteCompleted
	EventError
	EventUnbound
)

func (k EventKind) String() string {
	switch k {
	case EventHydrated:
		return "hydrated"
	case EventPhaseChanged:
		return "phase-changed"
	case EventRemoteChanged:
		return "remote-changed"
	case EventLocalChanged:
		return "local-changed"
	case EventWriteCompleted:
		return "write-completed"
	case EventError:
		return "error"
	case EventUnbound:
		return "unbound"
	default:
		return "unknown"
	}
}

// Event is one store notification. Document is set for hydrate, remote,
// local and unbind events and is a copy owned by the receiver.
type Event struct {
	Kind       EventKind
	Generation uint64
	Phase      Phase
	Document   workout.Document
	Err        error
}

// CarriesDocument reports whether ev delivers a new document.
func (ev Event) CarriesDocument() bool {
	switch ev.Kind {
	case EventHydrated, EventRemoteChanged, EventLocalChanged, EventUnbound:
		return true
	}
	return false
}
