// Package session drives the workout lifecycle on top of the state store:
// starting a session from a day's plan, logging sets, rest countdowns,
// finishing into the history and resuming after a restart.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/makstermee/Gym-planner/internal/event"
	"github.com/makstermee/Gym-planner/internal/metrics"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/timer"
	"github.com/makstermee/Gym-planner/internal/workout"
)

// DefaultRest is the countdown started after a logged set when auto-rest is on.
const DefaultRest = 60 * time.Second

var (
	ErrInvalidCommand       = errors.New("command not allowed")
	ErrEmptyPlan            = errors.New("plan has no exercises")
	ErrConfirmationRequired = fmt.Errorf("%w: a session is already in progress, confirm to replace it", ErrInvalidCommand)
)

// State is the position of the controller in the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateActive
	StateResumePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateResumePending:
		return "resume-pending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DocumentStore is the part of state.Store the controller needs.
type DocumentStore interface {
	Update(fn func(*workout.Document) error) error
	Document() workout.Document
	OnChange(fn func(state.Event)) (cancel func())
}

// Timers is the part of timer.Service the controller needs.
type Timers interface {
	StartMaster(start time.Time)
	StopMaster()
	StartRest(exercise int, d time.Duration) error
	CancelRest()
}

// Options configures a Controller. Store and Timers are required.
type Options struct {
	Store    DocumentStore
	Timers   Timers
	Clock    clockwork.Clock
	AutoRest bool
	Rest     time.Duration
	NewID    func() string
	Logger   logrus.FieldLogger
	Metrics  *metrics.Manager
}

// Controller is the session state machine. Commands are validated
// synchronously; a rejected command never changes state.
type Controller struct {
	store    DocumentStore
	timers   Timers
	clock    clockwork.Clock
	autoRest bool
	rest     time.Duration
	newID    func() string
	logger   logrus.FieldLogger
	metrics  *metrics.Manager
	bus      *event.Bus[Event]
	unsub    func()

	mu        sync.Mutex
	state     State
	sessionID string
	startTime time.Time
}

// New wires a controller to the store's notifications.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Rest <= 0 {
		opts.Rest = DefaultRest
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewTestManager()
	}
	c := &Controller{
		store:    opts.Store,
		timers:   opts.Timers,
		clock:    opts.Clock,
		autoRest: opts.AutoRest,
		rest:     opts.Rest,
		newID:    opts.NewID,
		logger:   opts.Logger.WithField("component", "session"),
		metrics:  opts.Metrics,
		bus:      event.NewBus[Event](),
	}
	c.unsub = opts.Store.OnChange(c.onStoreEvent)
	return c
}

// OnChange registers fn for controller events.
func (c *Controller) OnChange(fn func(Event)) (cancel func()) {
	return c.bus.Subscribe(fn)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close detaches the controller from the store and stops event delivery.
func (c *Controller) Close() {
	c.unsub()
	c.bus.Close()
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
}

func notIn(s State) error {
	return fmt.Errorf("%w: not allowed while %s", ErrInvalidCommand, s)
}

// StartWorkout begins a session from the plan of day. A session that is
// already active, awaiting resume or persisted in the document is only
// replaced when confirmReplace is set; the replaced session is discarded,
// never merged.
func (c *Controller) StartWorkout(day string, confirmReplace bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !workout.IsDay(day) {
		return invalid(fmt.Errorf("%w: %q", workout.ErrUnknownDay, day))
	}
	if c.state != StateIdle && !confirmReplace {
		return ErrConfirmationRequired
	}

	now := c.clock.Now()
	id := c.newID()
	replaced := c.state != StateIdle
	err := c.store.Update(func(doc *workout.Document) error {
		// The document may carry a session the resume prompt has not seen yet.
		if doc.ActiveWorkout.IsActive {
			if !confirmReplace {
				return ErrConfirmationRequired
			}
			replaced = true
		}
		if len(doc.Plans[day]) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyPlan, day)
		}
		return doc.StartSession(id, day, now)
	})
	if err != nil {
		return err
	}

	c.timers.CancelRest()
	c.timers.StartMaster(now)
	c.sessionID, c.startTime = id, now
	c.setStateLocked(StateActive)
	c.metrics.CounterSessions.WithLabelValues("started").Inc()
	c.logger.WithFields(logrus.Fields{
		"day":      day,
		"session":  id,
		"replaced": replaced,
	}).Info("workout started")
	return nil
}

// LogSet records a set on exercise exIndex of the active session.
func (c *Controller) LogSet(exIndex int, weight float64, reps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return notIn(c.state)
	}
	set := workout.LoggedSet{Weight: weight, Reps: reps}
	if err := set.Validate(); err != nil {
		return invalid(err)
	}
	err := c.store.Update(func(doc *workout.Document) error {
		return invalid(doc.AppendSet(exIndex, set))
	})
	if err != nil {
		return err
	}
	if c.autoRest {
		if err := c.timers.StartRest(exIndex, c.rest); err != nil {
			c.logger.Warnf("start rest: %s", err)
		}
	}
	return nil
}

// RemoveSet deletes one logged set of the active session.
func (c *Controller) RemoveSet(exIndex, setIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return notIn(c.state)
	}
	return c.store.Update(func(doc *workout.Document) error {
		return invalid(doc.DeleteSet(exIndex, setIndex))
	})
}

// StartRest starts a rest countdown of seconds for exercise exIndex.
func (c *Controller) StartRest(exIndex, seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return notIn(c.state)
	}
	doc := c.store.Document()
	if n := len(doc.ActiveWorkout.Exercises); exIndex < 0 || exIndex >= n {
		return invalid(fmt.Errorf("%w: exercise %d of %d", workout.ErrIndexOutOfRange, exIndex, n))
	}
	return invalid(c.timers.StartRest(exIndex, time.Duration(seconds)*time.Second))
}

// FinishWorkout archives the exercises that have logged sets and ends the
// session. The returned entry is nil when nothing was logged; such a session
// is dropped without a history entry.
func (c *Controller) FinishWorkout() (*workout.LogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return nil, notIn(c.state)
	}
	now := c.clock.Now()
	var entry *workout.LogEntry
	err := c.store.Update(func(doc *workout.Document) error {
		duration := timer.FormatElapsed(now.Sub(doc.ActiveWorkout.StartTime))
		e, err := doc.FinishSession(now, duration)
		if err != nil {
			return invalid(err)
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.timers.StopMaster()
	c.sessionID, c.startTime = "", time.Time{}
	c.setStateLocked(StateIdle)

	fields := logrus.Fields{"archived": entry != nil}
	if entry != nil {
		fields["day"] = entry.DayName
		fields["duration"] = entry.Duration
		fields["exercises"] = len(entry.Exercises)
		c.metrics.CounterSessions.WithLabelValues("finished").Inc()
	} else {
		c.metrics.CounterSessions.WithLabelValues("discarded").Inc()
	}
	c.logger.WithFields(fields).Info("workout finished")
	c.bus.Publish(Event{Kind: EventWorkoutFinished, State: c.state, Entry: entry})
	return entry, nil
}

// DiscardWorkout drops the active or pending session without archiving it.
func (c *Controller) DiscardWorkout() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return notIn(c.state)
	}
	err := c.store.Update(func(doc *workout.Document) error {
		doc.DiscardSession()
		return nil
	})
	if err != nil {
		return err
	}
	c.timers.StopMaster()
	c.sessionID, c.startTime = "", time.Time{}
	c.setStateLocked(StateIdle)
	c.metrics.CounterSessions.WithLabelValues("discarded").Inc()
	c.logger.Info("workout discarded")
	return nil
}

// Resume re-attaches the master timer to the persisted start time of the
// pending session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateResumePending {
		return notIn(c.state)
	}
	active := c.store.Document().ActiveWorkout
	if !active.IsActive {
		return invalid(workout.ErrSessionNotActive)
	}
	c.timers.StartMaster(active.StartTime)
	c.sessionID, c.startTime = active.ID, active.StartTime
	c.setStateLocked(StateActive)
	c.metrics.CounterSessions.WithLabelValues("resumed").Inc()
	c.logger.WithFields(logrus.Fields{
		"day":     active.DayName,
		"session": active.ID,
		"started": active.StartTime,
	}).Info("workout resumed")
	return nil
}

func (c *Controller) onStoreEvent(ev state.Event) {
	switch ev.Kind {
	case state.EventHydrated, state.EventRemoteChanged, state.EventUnbound:
	default:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Kind == state.EventUnbound {
		if c.state != StateIdle {
			c.timers.StopMaster()
			c.sessionID, c.startTime = "", time.Time{}
			c.setStateLocked(StateIdle)
		}
		return
	}

	active := c.store.Document().ActiveWorkout
	switch c.state {
	case StateIdle:
		if active.IsActive {
			c.setStateLocked(StateResumePending)
			c.logger.WithFields(logrus.Fields{
				"day":     active.DayName,
				"started": active.StartTime,
			}).Info("unfinished workout found")
			c.bus.Publish(Event{
				Kind:      EventResumeRequested,
				State:     c.state,
				Day:       active.DayName,
				StartTime: active.StartTime,
			})
		}
	case StateActive:
		if !active.IsActive {
			c.timers.StopMaster()
			c.sessionID, c.startTime = "", time.Time{}
			c.setStateLocked(StateIdle)
			c.logger.Info("workout ended on another device")
			return
		}
		if active.ID != c.sessionID || !active.StartTime.Equal(c.startTime) {
			c.timers.StartMaster(active.StartTime)
			c.sessionID, c.startTime = active.ID, active.StartTime
		}
	case StateResumePending:
		if !active.IsActive {
			c.setStateLocked(StateIdle)
		}
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.bus.Publish(Event{Kind: EventStateChanged, State: s})
}
