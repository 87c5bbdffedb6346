package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makstermee/Gym-planner/internal/config"
	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/session"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/workout"
)

func testConfig(t *testing.T, identity string) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Identity = identity
	cfg.Cache = config.Cache{Backend: config.CacheFile, Dir: filepath.Join(t.TempDir(), "cache")}
	cfg.LogFile = ""
	cfg.Debounce = 10 * time.Millisecond
	cfg.Workout.AutoRest = false
	return &cfg
}

func TestOpen_RunsWorkoutAgainstMemoryRemote(t *testing.T) {
	ctx := context.Background()
	rt, err := Open(ctx, Options{Config: testConfig(t, "u1"), PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	require.NoError(t, err)

	require.NoError(t, rt.Store.WaitSynced(ctx))
	err = rt.Session.StartWorkout("Poniedziałek", false)
	require.ErrorIs(t, err, session.ErrEmptyPlan)

	require.NoError(t, rt.Store.Update(func(doc *workout.Document) error {
		return doc.AddExercise("Poniedziałek", workout.ExerciseTemplate{Name: "Squat", TargetSets: 3, TargetReps: 5})
	}))
	require.NoError(t, rt.Session.StartWorkout("Poniedziałek", false))
	require.NoError(t, rt.Session.LogSet(0, 100, 5))
	entry, err := rt.Session.FinishWorkout()
	require.NoError(t, err)
	require.NotNil(t, entry)

	require.NoError(t, rt.Close())

	doc, err := rt.Remote.ReadOnce(ctx, remote.Key("u1"))
	require.NoError(t, err)
	require.Len(t, doc.Logs, 1)
	assert.Equal(t, "Squat", doc.Logs[0].Exercises[0].Name)
	assert.Equal(t, 500.0, doc.Logs[0].Volume())
	assert.False(t, doc.ActiveWorkout.IsActive)
}

func TestOpen_MemoryBackendKeepsDataAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "u1")
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")

	rt, err := Open(ctx, Options{Config: cfg, PrefsPath: prefsPath})
	require.NoError(t, err)
	require.NoError(t, rt.Store.WaitSynced(ctx))
	require.NoError(t, rt.Store.Update(func(doc *workout.Document) error {
		return doc.AddExercise("Poniedziałek", workout.ExerciseTemplate{Name: "Squat", TargetSets: 3, TargetReps: 5})
	}))
	require.NoError(t, rt.Session.StartWorkout("Poniedziałek", false))
	require.NoError(t, rt.Close())

	rt, err = Open(ctx, Options{Config: cfg, PrefsPath: prefsPath})
	require.NoError(t, err)
	defer rt.Close()
	require.NoError(t, rt.Store.WaitSynced(ctx))

	doc := rt.Store.Document()
	require.Len(t, doc.Plans["Poniedziałek"], 1)
	assert.Equal(t, "Squat", doc.Plans["Poniedziałek"][0].Name)
	assert.True(t, doc.ActiveWorkout.IsActive)
}

func TestOpen_WithoutIdentityStaysUnlinked(t *testing.T) {
	rt, err := Open(context.Background(), Options{Config: testConfig(t, ""), PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	assert.Equal(t, state.PhaseUnlinked, rt.Store.Phase())
	err = rt.Store.Update(func(*workout.Document) error { return nil })
	assert.True(t, errors.Is(err, state.ErrAuthRequired), "Update error = %v", err)
}

func TestOpen_IdentityOptionOverridesConfig(t *testing.T) {
	rt, err := Open(context.Background(), Options{
		Config:    testConfig(t, "from-config"),
		Identity:  "from-flag",
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	assert.Equal(t, "from-flag", rt.Store.Snapshot().Identity)
}

func TestOpen_RejectsUnknownRemote(t *testing.T) {
	cfg := testConfig(t, "u1")
	cfg.Remote.Backend = "carrier-pigeon"

	_, err := Open(context.Background(), Options{Config: cfg, PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestMetricsHandler_ExposesCoreMetrics(t *testing.T) {
	rt, err := Open(context.Background(), Options{Config: testConfig(t, "u1"), PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()
	require.NoError(t, rt.Store.WaitSynced(context.Background()))

	rec := httptest.NewRecorder()
	rt.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "gymplanner_core_sync_phase 2"), "sync phase gauge missing:\n%s", body)
	assert.Contains(t, body, `gymplanner_core_snapshots{result="not_found"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
