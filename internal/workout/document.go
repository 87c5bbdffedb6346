// Package workout defines the synchronized document: weekly plans, the workout
// history and the single in-progress session.
package workout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DayNames lists the fixed plan keys in display order.
var DayNames = []string{
	"Poniedziałek",
	"Wtorek",
	"Środa",
	"Czwartek",
	"Piątek",
	"Sobota",
	"Niedziela",
}

var (
	ErrUnknownDay       = errors.New("unknown day")
	ErrInvalidExercise  = errors.New("invalid exercise")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrInvalidSet       = errors.New("invalid set")
	ErrSessionNotActive = errors.New("no active session")
)

// ExerciseTemplate is one planned exercise of a day.
type ExerciseTemplate struct {
	Name       string `json:"name" bson:"name"`
	TargetSets int    `json:"targetSets" bson:"targetSets"`
	TargetReps int    `json:"targetReps" bson:"targetReps"`
}

// Validate reports whether the template can be stored in a plan.
func (t ExerciseTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidExercise)
	}
	if t.TargetSets < 1 {
		return fmt.Errorf("%w: target sets %d < 1", ErrInvalidExercise, t.TargetSets)
	}
	if t.TargetReps < 1 {
		return fmt.Errorf("%w: target reps %d < 1", ErrInvalidExercise, t.TargetReps)
	}
	return nil
}

// LoggedSet is a set performed during a session.
type LoggedSet struct {
	Weight float64 `json:"weight" bson:"weight"`
	Reps   int     `json:"reps" bson:"reps"`
}

// Validate checks that weight is a finite number >= 0 and reps >= 1.
func (s LoggedSet) Validate() error {
	if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) {
		return fmt.Errorf("%w: weight %v is not a finite number", ErrInvalidSet, s.Weight)
	}
	if s.Weight < 0 {
		return fmt.Errorf("%w: weight %.2f < 0", ErrInvalidSet, s.Weight)
	}
	if s.Reps < 1 {
		return fmt.Errorf("%w: reps %d < 1", ErrInvalidSet, s.Reps)
	}
	return nil
}

// ExerciseProgress is a template extended with the sets logged so far.
type ExerciseProgress struct {
	ExerciseTemplate `bson:",inline"`
	LoggedSets       []LoggedSet `json:"loggedSets" bson:"loggedSets"`
}

// ActiveWorkout is the in-progress session. The zero value is the inactive
// placeholder.
type ActiveWorkout struct {
	ID        string             `json:"id,omitempty" bson:"id,omitempty"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	DayName   string             `json:"dayName,omitempty" bson:"dayName,omitempty"`
	StartTime time.Time          `json:"startTime" bson:"startTime"`
	Exercises []ExerciseProgress `json:"exercises" bson:"exercises"`
}

// LogEntry is an archived session.
type LogEntry struct {
	Date      string             `json:"date" bson:"date"`
	DayName   string             `json:"dayName" bson:"dayName"`
	Duration  string             `json:"duration" bson:"duration"`
	Exercises []ExerciseProgress `json:"exercises" bson:"exercises"`
}

// Volume returns the sum of weight × reps over all sets of the entry.
func (e LogEntry) Volume() float64 {
	var total float64
	for _, ex := range e.Exercises {
		for _, set := range ex.LoggedSets {
			total += set.Weight * float64(set.Reps)
		}
	}
	return total
}

// Document is the single synchronized aggregate.
type Document struct {
	Plans         map[string][]ExerciseTemplate `json:"plans" bson:"plans"`
	Logs          []LogEntry                    `json:"logs" bson:"logs"`
	ActiveWorkout ActiveWorkout                 `json:"activeWorkout" bson:"activeWorkout"`
}

// Default returns the compiled-in empty document: every day present with an
// empty plan, no history and no active session.
func Default() Document {
	plans := make(map[string][]ExerciseTemplate, len(DayNames))
	for _, day := range DayNames {
		plans[day] = []ExerciseTemplate{}
	}
	return Document{
		Plans:         plans,
		Logs:          []LogEntry{},
		ActiveWorkout: ActiveWorkout{Exercises: []ExerciseProgress{}},
	}
}

// IsDay reports whether name is one of DayNames.
func IsDay(name string) bool {
	for _, day := range DayNames {
		if day == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{
		Plans:         make(map[string][]ExerciseTemplate, len(d.Plans)),
		Logs:          make([]LogEntry, len(d.Logs)),
		ActiveWorkout: d.ActiveWorkout.clone(),
	}
	for day, plan := range d.Plans {
		out.Plans[day] = cloneTemplates(plan)
	}
	for i, entry := range d.Logs {
		out.Logs[i] = LogEntry{
			Date:      entry.Date,
			DayName:   entry.DayName,
			Duration:  entry.Duration,
			Exercises: cloneProgress(entry.Exercises),
		}
	}
	return out
}

func (a ActiveWorkout) clone() ActiveWorkout {
	dup := a
	dup.Exercises = cloneProgress(a.Exercises)
	return dup
}

func cloneTemplates(in []ExerciseTemplate) []ExerciseTemplate {
	out := make([]ExerciseTemplate, len(in))
	copy(out, in)
	return out
}

func cloneProgress(in []ExerciseProgress) []ExerciseProgress {
	out := make([]ExerciseProgress, len(in))
	for i, ex := range in {
		out[i] = ExerciseProgress{
			ExerciseTemplate: ex.ExerciseTemplate,
			LoggedSets:       append([]LoggedSet{}, ex.LoggedSets...),
		}
	}
	return out
}

// Normalize merges a remote or cached document over Default. Top-level fields
// missing from src keep their default value and plans are merged per day, so a
// document written before a day existed still yields an empty list for it.
// Unknown day keys are kept as-is.
func Normalize(src Document) Document {
	out := Default()
	for day, plan := range src.Plans {
		if plan == nil {
			continue
		}
		out.Plans[day] = cloneTemplates(plan)
	}
	if src.Logs != nil {
		out.Logs = src.Clone().Logs
	}
	if src.ActiveWorkout.IsActive {
		out.ActiveWorkout = src.ActiveWorkout.clone()
	}
	return out
}

// TotalExercises counts templates over all plans.
func (d Document) TotalExercises() int {
	total := 0
	for _, plan := range d.Plans {
		total += len(plan)
	}
	return total
}
