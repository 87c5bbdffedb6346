package session

import (
	"time"

	"github.com/makstermee/Gym-planner/internal/workout"
)

// EventKind identifies a controller event.
type EventKind int

const (
	EventStateChanged EventKind = iota + 1
	// EventResumeRequested asks the view to offer resuming or discarding an
	// unfinished session found in the document.
	EventResumeRequested
	EventWorkoutFinished
)

// Event is what the controller publishes to its OnChange listeners.
type Event struct {
	Kind      EventKind
	State     State
	Day       string
	StartTime time.Time
	Entry     *workout.LogEntry // set by EventWorkoutFinished, nil when nothing was archived
}
