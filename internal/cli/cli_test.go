package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makstermee/Gym-planner/internal/app"
	"github.com/makstermee/Gym-planner/internal/config"
	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/remote/memory"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/workout"
)

type cliEnv struct {
	cfg       config.Config
	remote    *memory.Channel
	prefsPath string
}

func newEnv(t *testing.T, identity string) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Identity = identity
	cfg.Cache = config.Cache{Backend: config.CacheFile, Dir: filepath.Join(t.TempDir(), "cache")}
	cfg.LogFile = ""
	cfg.Debounce = 10 * time.Millisecond
	return &cliEnv{
		cfg:       cfg,
		remote:    memory.New(),
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := e.cfg
	cmd := NewRootCommand(app.Options{Config: &cfg, Remote: e.remote, PrefsPath: e.prefsPath})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) document(t *testing.T) workout.Document {
	t.Helper()
	doc, err := e.remote.ReadOnce(context.Background(), remote.Key(e.cfg.Identity))
	require.NoError(t, err)
	return doc
}

func TestPlan_AddShowRemove(t *testing.T) {
	env := newEnv(t, "u1")

	out, err := env.run(t, "plan", "add", "poniedziałek", "Back", "Squat", "--sets", "5", "--reps", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Back Squat (5 × 5) to Poniedziałek")

	_, err = env.run(t, "plan", "add", "1", "Bench Press")
	require.NoError(t, err)

	plan := env.document(t).Plans["Poniedziałek"]
	require.Len(t, plan, 2)
	assert.Equal(t, workout.ExerciseTemplate{Name: "Back Squat", TargetSets: 5, TargetReps: 5}, plan[0])
	assert.Equal(t, workout.ExerciseTemplate{Name: "Bench Press", TargetSets: 3, TargetReps: 10}, plan[1])

	out, err = env.run(t, "plan", "show", "Poniedziałek")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Back Squat  5 × 5")
	assert.Contains(t, out, "2. Bench Press  3 × 10")
	assert.NotContains(t, out, "Wtorek")

	out, err = env.run(t, "plan", "rm", "Poniedziałek", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed Back Squat from Poniedziałek")
	plan = env.document(t).Plans["Poniedziałek"]
	require.Len(t, plan, 1)
	assert.Equal(t, "Bench Press", plan[0].Name)
}

func TestPlan_PersistsAcrossRunsWithDefaultBackend(t *testing.T) {
	env := newEnv(t, "u1")
	run := func(args ...string) string {
		t.Helper()
		cfg := env.cfg
		cmd := NewRootCommand(app.Options{Config: &cfg, PrefsPath: env.prefsPath})
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.ExecuteContext(context.Background()))
		return out.String()
	}

	run("plan", "add", "1", "Squat", "--sets", "3", "--reps", "5")
	out := run("plan", "show", "1")
	assert.Contains(t, out, "1. Squat  3 × 5")
	assert.NotContains(t, out, "rest day")
}

func TestPlan_ShowAllDays(t *testing.T) {
	env := newEnv(t, "u1")

	out, err := env.run(t, "plan", "show")
	require.NoError(t, err)
	for _, day := range workout.DayNames {
		assert.Contains(t, out, day)
	}
	assert.Contains(t, out, "rest day")
}

func TestPlan_RejectsInvalidInput(t *testing.T) {
	env := newEnv(t, "u1")

	_, err := env.run(t, "plan", "add", "Funday", "Squat")
	assert.ErrorIs(t, err, workout.ErrUnknownDay)

	_, err = env.run(t, "plan", "add", "8", "Squat")
	assert.ErrorIs(t, err, workout.ErrUnknownDay)

	_, err = env.run(t, "plan", "add", "Wtorek", "Squat", "--sets", "0")
	assert.ErrorIs(t, err, workout.ErrInvalidExercise)

	_, err = env.run(t, "plan", "rm", "Wtorek", "1")
	assert.ErrorIs(t, err, workout.ErrIndexOutOfRange)

	_, err = env.run(t, "plan", "rm", "Wtorek", "first")
	assert.Error(t, err)
}

func TestHistory_ListsNewestFirstAndClears(t *testing.T) {
	env := newEnv(t, "u1")
	doc := workout.Default()
	doc.ReplaceLogs([]workout.LogEntry{
		{Date: "2024-03-01", DayName: "Piątek", Duration: "00:40:00", Exercises: []workout.ExerciseProgress{{
			ExerciseTemplate: workout.ExerciseTemplate{Name: "Squat", TargetSets: 1, TargetReps: 5},
			LoggedSets:       []workout.LoggedSet{{Weight: 100, Reps: 5}},
		}}},
		{Date: "2024-03-04", DayName: "Poniedziałek", Duration: "00:55:10"},
	})
	env.remote.Put(remote.Key("u1"), doc)

	out, err := env.run(t, "history")
	require.NoError(t, err)
	newer, older := strings.Index(out, "2024-03-04"), strings.Index(out, "2024-03-01")
	require.True(t, newer >= 0 && older >= 0, "both entries listed:\n%s", out)
	assert.Less(t, newer, older)
	assert.Contains(t, out, "Squat  100×5")
	assert.Contains(t, out, "volume 500")

	out, err = env.run(t, "history", "--limit", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "2024-03-01")

	_, err = env.run(t, "history", "clear")
	assert.ErrorIs(t, err, errClearNotConfirmed)
	assert.Len(t, env.document(t).Logs, 2)

	out, err = env.run(t, "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 saved workouts")
	assert.Empty(t, env.document(t).Logs)

	out, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved workouts yet.")
}

func TestStatus_ShowsUnfinishedWorkout(t *testing.T) {
	env := newEnv(t, "u1")
	doc := workout.Default()
	require.NoError(t, doc.AddExercise("Wtorek", workout.ExerciseTemplate{Name: "Deadlift", TargetSets: 1, TargetReps: 5}))
	require.NoError(t, doc.StartSession("s1", "Wtorek", time.Now().Add(-10*time.Minute)))
	env.remote.Put(remote.Key("u1"), doc)

	out, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "Identity: u1")
	assert.Contains(t, out, "Sync: synced")
	assert.Contains(t, out, "Planned exercises: 1")
	assert.Contains(t, out, "Unfinished workout")
	assert.Contains(t, out, "Day: Wtorek")

	assert.True(t, env.document(t).ActiveWorkout.IsActive, "status leaves the session alone")
}

func TestIdentityFlagOverridesConfig(t *testing.T) {
	env := newEnv(t, "")

	_, err := env.run(t, "status")
	assert.ErrorIs(t, err, errNoIdentity)

	_, err = env.run(t, "--identity", "u2", "plan", "add", "Sobota", "Row")
	require.NoError(t, err)
	doc, err := env.remote.ReadOnce(context.Background(), remote.Key("u2"))
	require.NoError(t, err)
	assert.Len(t, doc.Plans["Sobota"], 1)
}

func TestPrintStatus_WithoutSession(t *testing.T) {
	var out bytes.Buffer
	v := state.View{Phase: state.PhaseSynced, Identity: "u1", Document: workout.Default()}
	printStatus(&out, config.BackendMemory, v, time.Now())
	assert.Contains(t, out.String(), "Saved workouts: 0")
	assert.NotContains(t, out.String(), "Unfinished workout")
}

func TestResolveDay(t *testing.T) {
	cases := map[string]string{
		"Środa":        "Środa",
		"środa":        "Środa",
		" NIEDZIELA ":  "Niedziela",
		"1":            "Poniedziałek",
		"7":            "Niedziela",
		"poniedziałek": "Poniedziałek",
	}
	for in, want := range cases {
		got, err := resolveDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := resolveDay("0")
	assert.ErrorIs(t, err, workout.ErrUnknownDay)
}

func TestLogs_FiltersByLevel(t *testing.T) {
	env := newEnv(t, "u1")
	env.cfg.LogFile = filepath.Join(t.TempDir(), "gymplanner")
	content := strings.Join([]string{
		`time="2024-03-04T18:00:00Z" level=info msg="bound identity" identity=u1`,
		`time="2024-03-04T18:00:01Z" level=warning msg="write remote document failed"`,
		`time="2024-03-04T18:00:02Z" level=info msg="workout started" day=Wtorek`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(env.cfg.LogFile+".log", []byte(content), 0o644))

	out, err := env.run(t, "logs", "--level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "write remote document failed")
	assert.NotContains(t, out, "bound identity")

	out, err = env.run(t, "logs", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "workout started")
	assert.NotContains(t, out, "write remote document failed")

	_, err = env.run(t, "logs", "--level", "loud")
	assert.Error(t, err)
}
