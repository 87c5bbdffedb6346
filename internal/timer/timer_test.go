package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{100 * time.Hour, "100:00:00"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{60 * time.Second, "01:00"},
		{59500 * time.Millisecond, "01:00"},
		{59 * time.Second, "00:59"},
		{1 * time.Millisecond, "00:01"},
		{0, "00:00"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.in); got != tt.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestService_MasterDerivedFromStart(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	svc := NewService(clock)
	defer svc.Close()

	assert.Equal(t, "00:00:00", svc.Display())

	svc.StartMaster(t0)
	clock.Advance(90 * time.Second)
	assert.Equal(t, "00:01:30", svc.Display())

	svc.StopMaster()
	assert.False(t, svc.MasterRunning())
	assert.Equal(t, time.Duration(0), svc.Elapsed())
}

func TestService_ResumeFromPastStart(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0.Add(90 * time.Second))
	svc := NewService(clock)
	defer svc.Close()

	svc.StartMaster(t0)
	assert.Equal(t, "00:01:30", svc.Display())
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestService_RestCountdownFinishes(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	svc := NewService(clock)
	defer svc.Close()

	var log eventLog
	svc.OnChange(log.add)

	require.NoError(t, svc.StartRest(2, 60*time.Second))
	rest := svc.Rest()
	assert.True(t, rest.Active)
	assert.Equal(t, 2, rest.Exercise)
	assert.Equal(t, "01:00", rest.Display())

	clock.Advance(30 * time.Second)
	assert.Equal(t, "00:30", svc.Rest().Display())

	require.Eventually(t, func() bool {
		clock.Advance(TickInterval)
		return log.count(EventRestFinished) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, svc.Rest().Active)
	assert.GreaterOrEqual(t, log.count(EventTick), 1)
}

func TestService_StartRestReplacesRunningCountdown(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	svc := NewService(clock)
	defer svc.Close()

	require.NoError(t, svc.StartRest(0, 60*time.Second))
	clock.Advance(20 * time.Second)
	require.NoError(t, svc.StartRest(1, 90*time.Second))

	rest := svc.Rest()
	assert.Equal(t, 1, rest.Exercise)
	assert.Equal(t, "01:30", rest.Display())

	assert.ErrorIs(t, svc.StartRest(1, 0), ErrInvalidRest)
	svc.CancelRest()
	assert.False(t, svc.Rest().Active)
}

func TestService_StopMasterCancelsRest(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	svc := NewService(clock)
	defer svc.Close()

	svc.StartMaster(t0)
	require.NoError(t, svc.StartRest(0, time.Minute))
	svc.StopMaster()
	assert.False(t, svc.Rest().Active)
}

func TestService_TicksWhileMasterRuns(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	svc := NewService(clock)
	defer svc.Close()

	var log eventLog
	svc.OnChange(log.add)
	svc.StartMaster(t0)

	require.Eventually(t, func() bool {
		clock.Advance(TickInterval)
		return log.count(EventTick) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestService_CloseIsIdempotent(t *testing.T) {
	svc := NewService(clockwork.NewFakeClockAt(t0))
	svc.StartMaster(t0)
	svc.Close()
	svc.Close()
	svc.StartMaster(t0)
	assert.False(t, svc.MasterRunning())
}
