package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makstermee/Gym-planner/internal/localcache"
	"github.com/makstermee/Gym-planner/internal/prefs"
	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/remote/memory"
	"github.com/makstermee/Gym-planner/internal/session"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/timer"
	"github.com/makstermee/Gym-planner/internal/workout"
)

var t0 = time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)

type fixture struct {
	clock     *clockwork.FakeClock
	store     *state.Store
	timers    *timer.Service
	ctrl      *session.Controller
	prefsPath string
}

func newFixture(t *testing.T, seed *workout.Document) *fixture {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	ch := memory.New()
	if seed != nil {
		ch.Put(remote.Key("u1"), *seed)
	}
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(t0),
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	f.store = state.New(state.Options{Remote: ch, Cache: localcache.NewMemory(0), Clock: f.clock, Logger: logger})
	f.timers = timer.NewService(f.clock)
	f.ctrl = session.New(session.Options{
		Store:    f.store,
		Timers:   f.timers,
		Clock:    f.clock,
		AutoRest: true,
		Logger:   logger,
	})
	t.Cleanup(func() {
		f.ctrl.Close()
		f.store.Close()
		f.timers.Close()
	})

	require.NoError(t, f.store.Bind(context.Background(), "u1"))
	require.NoError(t, f.store.WaitSynced(context.Background()))
	return f
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	m := New(Options{
		Store:       f.store,
		Session:     f.ctrl,
		Clocks:      f.timers,
		Prefs:       prefs.Prefs{Theme: "Dracula"},
		PrefsPath:   f.prefsPath,
		RestOptions: []int{60, 90},
		Logger:      logger,
	})
	return send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out
}

// press sends each key in order. Named keys use bubbletea's names; anything
// else is typed as runes.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m = send(t, m, msg)
	}
	return m
}

func planDocument() workout.Document {
	doc := workout.Default()
	_ = doc.AddExercise("Poniedziałek", workout.ExerciseTemplate{Name: "Squat", TargetSets: 3, TargetReps: 5})
	_ = doc.AddExercise("Poniedziałek", workout.ExerciseTemplate{Name: "Bench", TargetSets: 3, TargetReps: 8})
	_ = doc.AddExercise("Wtorek", workout.ExerciseTemplate{Name: "Deadlift", TargetSets: 1, TargetReps: 5})
	return doc
}

func TestModel_AddExerciseThroughForm(t *testing.T) {
	f := newFixture(t, nil)
	m := f.model(t)

	m = press(t, m, "n")
	require.NotNil(t, m.form, "n should open the exercise form")
	m = press(t, m, "Front Squat", "enter", "enter", "enter")

	assert.Nil(t, m.form)
	plan := f.store.Document().Plans["Poniedziałek"]
	require.Len(t, plan, 1)
	assert.Equal(t, workout.ExerciseTemplate{Name: "Front Squat", TargetSets: 3, TargetReps: 10}, plan[0])
	assert.Contains(t, m.flash, "Front Squat")
}

func TestModel_InvalidExerciseKeepsFormOpen(t *testing.T) {
	f := newFixture(t, nil)
	m := f.model(t)

	m = press(t, m, "n", "enter", "enter", "enter")

	require.NotNil(t, m.form)
	assert.Contains(t, m.form.err, workout.ErrInvalidExercise.Error())
	assert.Equal(t, 0, f.store.Document().TotalExercises())

	m = press(t, m, "esc")
	assert.Nil(t, m.form)
}

func TestModel_StartEmptyDayReportsError(t *testing.T) {
	f := newFixture(t, nil)
	m := f.model(t)

	m = press(t, m, "s")

	assert.True(t, m.flashErr)
	assert.Contains(t, m.flash, session.ErrEmptyPlan.Error())
	assert.Equal(t, session.StateIdle, f.ctrl.State())
	assert.Equal(t, ViewWeek, m.currentView)
}

func TestModel_WorkoutFlow(t *testing.T) {
	doc := planDocument()
	f := newFixture(t, &doc)
	m := f.model(t)

	m = press(t, m, "s")
	require.Equal(t, session.StateActive, f.ctrl.State())
	require.Equal(t, ViewWorkout, m.currentView)

	// Log 100×5 on Squat; the reps field is prefilled with the target.
	m = press(t, m, "enter", "100", "enter", "enter")
	require.Nil(t, m.form)
	sets := f.store.Document().ActiveWorkout.Exercises[0].LoggedSets
	require.Equal(t, []workout.LoggedSet{{Weight: 100, Reps: 5}}, sets)
	assert.True(t, f.timers.Rest().Active, "auto rest should start after a set")

	// The second set form is prefilled with the previous set.
	m = press(t, m, "enter", "enter", "enter")
	assert.Len(t, f.store.Document().ActiveWorkout.Exercises[0].LoggedSets, 2)

	m = press(t, m, "-")
	assert.Len(t, f.store.Document().ActiveWorkout.Exercises[0].LoggedSets, 1)

	m = press(t, m, "R", "r")
	assert.Equal(t, "01:30", f.timers.Rest().Display())

	m = press(t, m, "f")
	require.NotNil(t, m.modal)
	m = press(t, m, "y")

	assert.Equal(t, session.StateIdle, f.ctrl.State())
	assert.Equal(t, ViewHistory, m.currentView)
	logs := f.store.Document().Logs
	require.Len(t, logs, 1)
	require.Len(t, logs[0].Exercises, 1, "only exercises with sets are archived")
	assert.Equal(t, "Squat", logs[0].Exercises[0].Name)
	assert.Contains(t, m.View(), "Squat")
}

func TestModel_InvalidSetIsRejected(t *testing.T) {
	doc := planDocument()
	f := newFixture(t, &doc)
	m := f.model(t)

	m = press(t, m, "s", "enter", "60", "enter", "backspace", "0", "enter")

	require.NotNil(t, m.form, "form stays open on a rejected set")
	assert.Contains(t, m.form.err, workout.ErrInvalidSet.Error())
	assert.Empty(t, f.store.Document().ActiveWorkout.Exercises[0].LoggedSets)
}

func TestModel_ReplaceNeedsConfirmation(t *testing.T) {
	doc := planDocument()
	f := newFixture(t, &doc)
	m := f.model(t)

	m = press(t, m, "s", "w", "j", "s")
	require.NotNil(t, m.modal)
	assert.Equal(t, modalReplace, m.modal.kind)
	assert.Equal(t, "Poniedziałek", f.store.Document().ActiveWorkout.DayName)

	m = press(t, m, "y")
	assert.Nil(t, m.modal)
	active := f.store.Document().ActiveWorkout
	assert.Equal(t, "Wtorek", active.DayName)
	require.Len(t, active.Exercises, 1)
	assert.Equal(t, "Deadlift", active.Exercises[0].Name)
}

func TestModel_ResumePromptOnUnfinishedSession(t *testing.T) {
	doc := planDocument()
	require.NoError(t, doc.StartSession("s1", "Poniedziałek", t0.Add(-90*time.Second)))
	f := newFixture(t, &doc)
	require.Eventually(t, func() bool { return f.ctrl.State() == session.StateResumePending }, time.Second, 5*time.Millisecond)

	m := f.model(t)
	require.NotNil(t, m.modal)
	assert.Equal(t, modalResume, m.modal.kind)

	m = press(t, m, "esc")
	assert.Nil(t, m.modal)
	m = send(t, m, refreshMsg{})
	assert.Nil(t, m.modal, "the prompt opens once per pending session")

	m = press(t, m, "a", "enter")
	require.NotNil(t, m.modal)
	m = press(t, m, "y")

	assert.Equal(t, session.StateActive, f.ctrl.State())
	assert.Equal(t, ViewWorkout, m.currentView)
	assert.Equal(t, "00:01:30", f.timers.Display())
}

func TestModel_ResumePromptDiscard(t *testing.T) {
	doc := planDocument()
	require.NoError(t, doc.StartSession("s1", "Wtorek", t0))
	f := newFixture(t, &doc)
	require.Eventually(t, func() bool { return f.ctrl.State() == session.StateResumePending }, time.Second, 5*time.Millisecond)

	m := f.model(t)
	m = press(t, m, "n")

	assert.Equal(t, session.StateIdle, f.ctrl.State())
	assert.False(t, f.store.Document().ActiveWorkout.IsActive)
	assert.Empty(t, f.store.Document().Logs)
}

func TestModel_ClearHistory(t *testing.T) {
	doc := planDocument()
	doc.ReplaceLogs([]workout.LogEntry{{Date: "2024-03-01", DayName: "Piątek", Duration: "00:40:00"}})
	f := newFixture(t, &doc)
	m := f.model(t)

	m = press(t, m, "y")
	require.Equal(t, ViewHistory, m.currentView)
	assert.Contains(t, m.View(), "2024-03-01")

	m = press(t, m, "C", "n")
	assert.Len(t, f.store.Document().Logs, 1, "n keeps the history")

	m = press(t, m, "C", "y")
	assert.Empty(t, f.store.Document().Logs)
}

func TestModel_RemoveExerciseFromPlan(t *testing.T) {
	doc := planDocument()
	f := newFixture(t, &doc)
	m := f.model(t)

	m = press(t, m, "x")
	assert.Len(t, f.store.Document().Plans["Poniedziałek"], 2, "x does nothing until the plan has focus")

	m = press(t, m, "enter", "j", "x")
	plan := f.store.Document().Plans["Poniedziałek"]
	require.Len(t, plan, 1)
	assert.Equal(t, "Squat", plan[0].Name)
	assert.Equal(t, 0, m.planRow)
}

func TestModel_QuitSavesPrefs(t *testing.T) {
	f := newFixture(t, nil)
	m := f.model(t)

	m = press(t, m, "T", "j", "j")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)

	p, err := prefs.Load(f.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, prefs.Prefs{Theme: "Slate", RestSeconds: 60, LastDay: "Środa"}, p)
}

func TestModel_HeaderShowsSyncAndSession(t *testing.T) {
	doc := planDocument()
	f := newFixture(t, &doc)
	m := f.model(t)

	view := m.View()
	assert.Contains(t, view, "gymplanner")
	assert.Contains(t, view, "SYNCED")

	m = press(t, m, "s")
	f.clock.Advance(65 * time.Second)
	m = send(t, m, tickMsg(f.clock.Now()))
	view = m.View()
	assert.Contains(t, view, "WORKOUT")
	assert.Contains(t, view, "00:01:05")
	assert.True(t, strings.Contains(view, "Squat"), "workout view lists the exercises")
}
