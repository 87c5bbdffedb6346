package workout

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format of LogEntry.Date.
const DateLayout = "2006-01-02"

// AddExercise appends tmpl to the plan of day.
func (d *Document) AddExercise(day string, tmpl ExerciseTemplate) error {
	if !IsDay(day) {
		return fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}
	if err := tmpl.Validate(); err != nil {
		return err
	}
	if d.Plans == nil {
		d.Plans = Default().Plans
	}
	d.Plans[day] = append(d.Plans[day], tmpl)
	return nil
}

// RemoveExercise deletes the template at index from the plan of day.
func (d *Document) RemoveExercise(day string, index int) error {
	if !IsDay(day) {
		return fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}
	plan := d.Plans[day]
	if index < 0 || index >= len(plan) {
		return fmt.Errorf("%w: exercise %d of %d", ErrIndexOutOfRange, index, len(plan))
	}
	next := make([]ExerciseTemplate, 0, len(plan)-1)
	next = append(next, plan[:index]...)
	next = append(next, plan[index+1:]...)
	d.Plans[day] = next
	return nil
}

// StartSession replaces the active workout with a snapshot of the plan of day.
// Later plan edits do not reach the snapshot.
func (d *Document) StartSession(id, day string, now time.Time) error {
	if !IsDay(day) {
		return fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}
	plan := d.Plans[day]
	exercises := make([]ExerciseProgress, len(plan))
	for i, tmpl := range plan {
		exercises[i] = ExerciseProgress{ExerciseTemplate: tmpl, LoggedSets: []LoggedSet{}}
	}
	d.ActiveWorkout = ActiveWorkout{
		ID:        id,
		IsActive:  true,
		DayName:   day,
		StartTime: now,
		Exercises: exercises,
	}
	return nil
}

// AppendSet logs a set on exercise exIndex of the active workout.
func (d *Document) AppendSet(exIndex int, set LoggedSet) error {
	if !d.ActiveWorkout.IsActive {
		return ErrSessionNotActive
	}
	if err := set.Validate(); err != nil {
		return err
	}
	exercises := d.ActiveWorkout.Exercises
	if exIndex < 0 || exIndex >= len(exercises) {
		return fmt.Errorf("%w: exercise %d of %d", ErrIndexOutOfRange, exIndex, len(exercises))
	}
	exercises[exIndex].LoggedSets = append(exercises[exIndex].LoggedSets, set)
	return nil
}

// DeleteSet removes set setIndex of exercise exIndex of the active workout.
func (d *Document) DeleteSet(exIndex, setIndex int) error {
	if !d.ActiveWorkout.IsActive {
		return ErrSessionNotActive
	}
	exercises := d.ActiveWorkout.Exercises
	if exIndex < 0 || exIndex >= len(exercises) {
		return fmt.Errorf("%w: exercise %d of %d", ErrIndexOutOfRange, exIndex, len(exercises))
	}
	sets := exercises[exIndex].LoggedSets
	if setIndex < 0 || setIndex >= len(sets) {
		return fmt.Errorf("%w: set %d of %d", ErrIndexOutOfRange, setIndex, len(sets))
	}
	next := make([]LoggedSet, 0, len(sets)-1)
	next = append(next, sets[:setIndex]...)
	next = append(next, sets[setIndex+1:]...)
	exercises[exIndex].LoggedSets = next
	return nil
}

// FinishSession archives the active workout and resets it in one step. Only
// exercises with at least one logged set are kept; when none are left nothing
// is archived and the returned entry is nil.
func (d *Document) FinishSession(now time.Time, duration string) (*LogEntry, error) {
	if !d.ActiveWorkout.IsActive {
		return nil, ErrSessionNotActive
	}
	var done []ExerciseProgress
	for _, ex := range d.ActiveWorkout.Exercises {
		if len(ex.LoggedSets) > 0 {
			done = append(done, ex)
		}
	}
	var entry *LogEntry
	if len(done) > 0 {
		entry = &LogEntry{
			Date:      now.Format(DateLayout),
			DayName:   d.ActiveWorkout.DayName,
			Duration:  duration,
			Exercises: cloneProgress(done),
		}
		archived := *entry
		archived.Exercises = cloneProgress(done)
		d.Logs = append(d.Logs, archived)
	}
	d.DiscardSession()
	return entry, nil
}

// DiscardSession resets the active workout to the inactive placeholder.
func (d *Document) DiscardSession() {
	d.ActiveWorkout = ActiveWorkout{Exercises: []ExerciseProgress{}}
}

// ReplaceLogs swaps the whole history, e.g. after an import.
func (d *Document) ReplaceLogs(logs []LogEntry) {
	d.Logs = Document{Logs: logs}.Clone().Logs
}

// ClearLogs drops the whole history.
func (d *Document) ClearLogs() {
	d.Logs = []LogEntry{}
}
