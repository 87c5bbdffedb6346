// Package timer runs the workout clocks: the master timer counting up from
// the session start and a single rest countdown. Both are derived from
// timestamps, so a resumed session shows the true elapsed time.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/makstermee/Gym-planner/internal/event"
)

// TickInterval is the refresh period of both clocks.
const TickInterval = time.Second

// ErrInvalidRest is returned for a rest countdown of zero or less.
var ErrInvalidRest = errors.New("rest duration must be positive")

// EventKind identifies a timer event.
type EventKind int

const (
	EventTick EventKind = iota + 1
	EventRestFinished
)

// Rest describes the rest countdown.
type Rest struct {
	Active    bool
	Exercise  int
	Remaining time.Duration
}

// Display renders the remaining time as MM:SS.
func (r Rest) Display() string {
	return FormatCountdown(r.Remaining)
}

// Event carries both clocks as they were when the event fired.
type Event struct {
	Kind          EventKind
	MasterRunning bool
	Elapsed       time.Duration
	Rest          Rest
}

// Service owns one ticker that runs only while a clock is active.
type Service struct {
	clock clockwork.Clock
	bus   *event.Bus[Event]
	wg    sync.WaitGroup

	mu           sync.Mutex
	masterOn     bool
	masterStart  time.Time
	restOn       bool
	restExercise int
	restDeadline time.Time
	ticker       clockwork.Ticker
	stopTicker   chan struct{}
	closed       bool
}

// NewService returns an idle service. A nil clock means the real clock.
func NewService(clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{clock: clock, bus: event.NewBus[Event]()}
}

// OnChange registers fn for tick and rest-finished events.
func (s *Service) OnChange(fn func(Event)) (cancel func()) {
	return s.bus.Subscribe(fn)
}

// StartMaster attaches the master timer to start, which may lie in the past.
func (s *Service) StartMaster(start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.masterOn = true
	s.masterStart = start
	s.ensureTickerLocked()
}

// StopMaster stops the master timer and cancels any rest countdown.
func (s *Service) StopMaster() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterOn = false
	s.masterStart = time.Time{}
	s.restOn = false
	s.stopIfIdleLocked()
}

// Elapsed returns the time since the master start, or zero when stopped.
func (s *Service) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked(s.clock.Now())
}

// Display renders Elapsed as HH:MM:SS.
func (s *Service) Display() string {
	return FormatElapsed(s.Elapsed())
}

// MasterRunning reports whether the master timer is attached.
func (s *Service) MasterRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masterOn
}

// StartRest starts a countdown for exercise, replacing any running one.
func (s *Service) StartRest(exercise int, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRest, d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.restOn = true
	s.restExercise = exercise
	s.restDeadline = s.clock.Now().Add(d)
	s.ensureTickerLocked()
	return nil
}

// CancelRest stops the countdown without a finished event.
func (s *Service) CancelRest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restOn = false
	s.stopIfIdleLocked()
}

// Rest returns the current countdown state.
func (s *Service) Rest() Rest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restLocked(s.clock.Now())
}

// Close stops the ticker goroutine and event delivery and waits for both.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.masterOn = false
	s.restOn = false
	s.stopIfIdleLocked()
	s.mu.Unlock()

	s.wg.Wait()
	s.bus.Close()
}

func (s *Service) elapsedLocked(now time.Time) time.Duration {
	if !s.masterOn {
		return 0
	}
	if d := now.Sub(s.masterStart); d > 0 {
		return d
	}
	return 0
}

func (s *Service) restLocked(now time.Time) Rest {
	if !s.restOn {
		return Rest{}
	}
	remaining := s.restDeadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Rest{Active: true, Exercise: s.restExercise, Remaining: remaining}
}

func (s *Service) ensureTickerLocked() {
	if s.ticker != nil {
		return
	}
	s.ticker = s.clock.NewTicker(TickInterval)
	s.stopTicker = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stopTicker)
}

func (s *Service) stopIfIdleLocked() {
	if s.masterOn || s.restOn || s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stopTicker)
	s.ticker = nil
	s.stopTicker = nil
}

func (s *Service) run(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.tick()
		}
	}
}

func (s *Service) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}

	now := s.clock.Now()
	rest := s.restLocked(now)
	if rest.Active && rest.Remaining == 0 {
		s.restOn = false
		s.bus.Publish(Event{
			Kind:          EventRestFinished,
			MasterRunning: s.masterOn,
			Elapsed:       s.elapsedLocked(now),
			Rest:          rest,
		})
		rest = Rest{}
	}
	s.bus.Publish(Event{
		Kind:          EventTick,
		MasterRunning: s.masterOn,
		Elapsed:       s.elapsedLocked(now),
		Rest:          rest,
	})
	s.stopIfIdleLocked()
}
