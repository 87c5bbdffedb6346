package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/makstermee/Gym-planner/internal/event"
	"github.com/makstermee/Gym-planner/internal/localcache"
	"github.com/makstermee/Gym-planner/internal/metrics"
	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/workout"
)

// DefaultDebounce is the quiet period before local edits are written.
const DefaultDebounce = 2 * time.Second

var (
	ErrAuthRequired      = errors.New("no identity bound")
	ErrSyncNotReady      = errors.New("remote write suppressed before first snapshot")
	ErrRemoteWriteFailed = errors.New("remote write failed")
	ErrRemoteReadFailed  = errors.New("remote read failed")
)

// Phase is the synchronization phase of the bound identity.
type Phase int

const (
	PhaseUnlinked Phase = iota
	PhaseAwaitingFirstSnapshot
	PhaseSynced
)

func (p Phase) String() string {
	switch p {
	case PhaseUnlinked:
		return "unlinked"
	case PhaseAwaitingFirstSnapshot:
		return "syncing"
	case PhaseSynced:
		return "synced"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// View is a point-in-time copy of the store for rendering.
type View struct {
	Phase               Phase
	Identity            string
	Document            workout.Document
	Blocked             bool // an edit was kept local because the first snapshot had not arrived
	PendingWrite        bool
	LastError           error
	ConsecutiveFailures int // consecutive subscription failures
	LastSynced          time.Time
}

// IsOffline returns true when the subscription failed more than once in a row.
func (v View) IsOffline() bool {
	return v.ConsecutiveFailures >= 2
}

// Options configures a Store. Remote and Cache are required.
type Options struct {
	Remote          remote.Channel
	Cache           localcache.Cache
	Clock           clockwork.Clock
	Debounce        time.Duration
	ResubscribeBase time.Duration
	Logger          logrus.FieldLogger
	Metrics         *metrics.Manager
}

// Store owns the in-memory document of one bound identity and keeps it
// consistent with the local cache and the remote channel.
type Store struct {
	remote          remote.Channel
	cache           localcache.Cache
	clock           clockwork.Clock
	debounceDelay   time.Duration
	resubscribeBase time.Duration
	logger          logrus.FieldLogger
	metrics         *metrics.Manager
	bus             *event.Bus[Event]

	// writeMu serializes remote writes. It is never taken while mu is held.
	writeMu        sync.Mutex
	writtenVersion uint64

	mu               sync.Mutex
	phase            Phase
	identity         string
	key              string
	generation       uint64
	doc              workout.Document
	version          uint64
	blocked          bool
	dirty            bool
	writing          int               // writes captured and not yet settled
	deferred         *workout.Document // latest snapshot held back by a pending write
	debounceSeq      uint64
	debounceTimer    clockwork.Timer
	resubscribeTimer clockwork.Timer
	unsubscribe      func()
	bindCtx          context.Context
	bindCancel       context.CancelFunc
	ready            chan struct{}
	lastErr          error
	failures         int
	lastSynced       time.Time
	closed           bool
}

// New returns an unlinked store.
func New(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.ResubscribeBase <= 0 {
		opts.ResubscribeBase = defaultResubscribeBase
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewTestManager()
	}
	return &Store{
		remote:          opts.Remote,
		cache:           opts.Cache,
		clock:           opts.Clock,
		debounceDelay:   opts.Debounce,
		resubscribeBase: opts.ResubscribeBase,
		logger:          opts.Logger.WithField("component", "store"),
		metrics:         opts.Metrics,
		bus:             event.NewBus[Event](),
		doc:             workout.Default(),
	}
}

// OnChange registers fn for store events. Events are delivered in order on a
// goroutine owned by the store, never while the store lock is held.
func (s *Store) OnChange(fn func(Event)) (cancel func()) {
	return s.bus.Subscribe(fn)
}

// Bind links the store to identity: the cached document is loaded, then the
// remote subscription is opened. Binding the identity that is already bound
// is a no-op; binding another one unbinds the previous identity first.
func (s *Store) Bind(ctx context.Context, identity string) error {
	if identity == "" {
		return ErrAuthRequired
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("store closed")
	}
	if s.phase != PhaseUnlinked && s.identity == identity {
		s.mu.Unlock()
		return nil
	}
	prevKey := s.key
	prevUnsub := s.resetLocked()
	if prevKey != "" {
		if err := s.cache.Clear(prevKey); err != nil {
			s.logger.WithField("key", prevKey).Warnf("clear local cache: %s", err)
		}
	}

	s.generation++
	gen := s.generation
	s.identity = identity
	s.key = remote.Key(identity)
	s.doc = s.hydrateLocked()
	s.bindCtx, s.bindCancel = context.WithCancel(ctx)
	s.ready = make(chan struct{})
	s.setPhaseLocked(PhaseAwaitingFirstSnapshot)
	s.emitLocked(Event{Kind: EventHydrated, Document: s.doc.Clone()})
	key, bindCtx := s.key, s.bindCtx
	s.mu.Unlock()

	if prevUnsub != nil {
		prevUnsub()
	}

	s.logger.WithField("identity", identity).Info("bound identity")
	s.subscribe(bindCtx, gen, key)
	return nil
}

func (s *Store) hydrateLocked() workout.Document {
	doc, ok, err := s.cache.Get(s.key)
	if err != nil {
		s.logger.WithField("key", s.key).Warnf("local cache unreadable, starting from default: %s", err)
		return workout.Default()
	}
	if !ok {
		return workout.Default()
	}
	s.logger.WithFields(logrus.Fields{
		"key":       s.key,
		"source":    "cache",
		"exercises": doc.TotalExercises(),
		"logs":      len(doc.Logs),
	}).Debug("hydrated document")
	return workout.Normalize(doc)
}

func (s *Store) subscribe(ctx context.Context, gen uint64, key string) {
	cancel, err := s.remote.Subscribe(ctx, key,
		func(snap remote.Snapshot) { s.onSnapshot(gen, snap) },
		func(err error) { s.onRemoteError(gen, err) },
	)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	if err != nil {
		s.failSubscriptionLocked(gen, err)
		s.mu.Unlock()
		return
	}
	s.unsubscribe = cancel
	s.mu.Unlock()
}

func (s *Store) onSnapshot(gen uint64, snap remote.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}

	s.failures = 0
	if errors.Is(s.lastErr, ErrRemoteReadFailed) {
		s.lastErr = nil
	}

	logger := s.logger.WithField("key", s.key)

	switch s.phase {
	case PhaseAwaitingFirstSnapshot:
		if snap.Exists {
			s.doc = workout.Normalize(snap.Document)
			s.metrics.CounterSnapshots.WithLabelValues("ingested").Inc()
		} else {
			s.doc = workout.Default()
			s.metrics.CounterSnapshots.WithLabelValues("not_found").Inc()
			logger.Info("no remote document, bootstrapping default")
		}
		s.version++
		s.writeCacheLocked()
		s.blocked = false
		s.lastSynced = s.clock.Now()
		s.setPhaseLocked(PhaseSynced)
		close(s.ready)
		s.logIngestLocked(logger, snap.Exists)
		s.emitLocked(Event{Kind: EventRemoteChanged, Document: s.doc.Clone()})
		if !snap.Exists {
			s.dirty = true
			s.armDebounceLocked()
		}

	case PhaseSynced:
		if !snap.Exists {
			s.metrics.CounterSnapshots.WithLabelValues("not_found").Inc()
			logger.Warn("remote document disappeared, writing it back")
			s.deferred = nil
			s.dirty = true
			if s.debounceTimer == nil {
				s.armDebounceLocked()
			}
			return
		}
		if s.dirty && (s.debounceTimer != nil || s.writing > 0) {
			doc := workout.Normalize(snap.Document)
			s.deferred = &doc
			s.metrics.CounterSnapshots.WithLabelValues("deferred").Inc()
			logger.Debug("remote snapshot deferred, local edits pending")
			return
		}
		s.ingestLocked(logger, workout.Normalize(snap.Document))
	}
}

// ingestLocked replaces the document with a remote one. A local edit whose
// write already failed is dropped in favour of the newer remote state.
func (s *Store) ingestLocked(logger logrus.FieldLogger, doc workout.Document) {
	if s.dirty {
		logger.Warn("unsynced local edit superseded by remote snapshot")
		s.metrics.CounterSnapshots.WithLabelValues("superseded").Inc()
		s.dirty = false
		if errors.Is(s.lastErr, ErrRemoteWriteFailed) {
			s.lastErr = nil
		}
	}
	s.deferred = nil
	s.doc = doc
	s.version++
	s.writeCacheLocked()
	s.lastSynced = s.clock.Now()
	s.metrics.CounterSnapshots.WithLabelValues("ingested").Inc()
	s.logIngestLocked(logger, true)
	s.emitLocked(Event{Kind: EventRemoteChanged, Document: s.doc.Clone()})
}

func (s *Store) logIngestLocked(logger logrus.FieldLogger, exists bool) {
	logger.WithFields(logrus.Fields{
		"source":    "remote",
		"exists":    exists,
		"exercises": s.doc.TotalExercises(),
		"logs":      len(s.doc.Logs),
		"active":    s.doc.ActiveWorkout.IsActive,
	}).Debug("ingested snapshot")
}

func (s *Store) onRemoteError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.failSubscriptionLocked(gen, err)
}

func (s *Store) failSubscriptionLocked(gen uint64, err error) {
	s.failures++
	s.lastErr = fmt.Errorf("%w: %w", ErrRemoteReadFailed, err)
	s.metrics.CounterReadErrors.Inc()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.resubscribeTimer != nil {
		s.resubscribeTimer.Stop()
	}
	delay := calculateBackoff(s.failures-1, s.resubscribeBase)
	s.logger.WithFields(logrus.Fields{
		"key":      s.key,
		"failures": s.failures,
		"retry_in": delay,
	}).Warnf("remote subscription failed: %s", err)

	ctx, key := s.bindCtx, s.key
	s.resubscribeTimer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.resubscribeTimer = nil
		s.mu.Unlock()
		s.subscribe(ctx, gen, key)
	})
	s.emitLocked(Event{Kind: EventError, Err: s.lastErr})
}

// Update applies fn to a copy of the document and commits the result. An
// error from fn leaves the document untouched and is returned as is. A
// committed edit is written to the local cache immediately and to the remote
// channel after the debounce period, once the first snapshot has arrived.
func (s *Store) Update(fn func(*workout.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseUnlinked {
		return ErrAuthRequired
	}

	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.doc = next
	s.version++
	s.writeCacheLocked()
	s.emitLocked(Event{Kind: EventLocalChanged, Document: s.doc.Clone()})

	if s.phase != PhaseSynced {
		s.blocked = true
		s.metrics.CounterWrites.WithLabelValues("suppressed").Inc()
		s.logger.WithError(ErrSyncNotReady).WithField("key", s.key).Debug("edit kept local")
		return nil
	}

	s.dirty = true
	s.armDebounceLocked()
	return nil
}

func (s *Store) writeCacheLocked() {
	if err := s.cache.Set(s.key, s.doc); err != nil {
		s.logger.WithField("key", s.key).Warnf("write local cache: %s", err)
	}
}

func (s *Store) armDebounceLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.metrics.CounterCoalesced.Inc()
	}
	s.debounceSeq++
	gen, seq := s.generation, s.debounceSeq
	s.debounceTimer = s.clock.AfterFunc(s.debounceDelay, func() {
		s.fire(gen, seq)
	})
}

func (s *Store) stopDebounceLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	s.debounceSeq++
}

func (s *Store) fire(gen, seq uint64) {
	s.mu.Lock()
	if gen != s.generation || seq != s.debounceSeq || s.phase != PhaseSynced {
		s.mu.Unlock()
		return
	}
	s.debounceTimer = nil
	s.writing++
	doc, version, key, ctx := s.doc.Clone(), s.version, s.key, s.bindCtx
	s.mu.Unlock()

	_ = s.write(ctx, gen, key, doc, version)
}

// write issues one remote write. Only documents captured while the current
// generation was synced reach this point, each counted in s.writing by the
// caller.
func (s *Store) write(ctx context.Context, gen uint64, key string, doc workout.Document, version uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.isCurrent(gen) || version < s.writtenVersion {
		s.mu.Lock()
		if gen == s.generation {
			s.writing--
		}
		s.mu.Unlock()
		return nil
	}
	s.writtenVersion = version

	start := s.clock.Now()
	err := s.remote.Write(ctx, key, doc)
	s.metrics.HistWriteDuration.Observe(s.clock.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.writing--
	logger := s.logger.WithFields(logrus.Fields{"key": key, "exercises": doc.TotalExercises()})
	if err != nil {
		s.metrics.CounterWrites.WithLabelValues("failed").Inc()
		s.lastErr = fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
		logger.Warnf("remote write failed: %s", err)
		failed := s.lastErr
		if s.deferred != nil && s.debounceTimer == nil && s.writing == 0 {
			s.ingestLocked(logger, *s.deferred)
		}
		s.emitLocked(Event{Kind: EventError, Err: failed})
		return failed
	}

	s.metrics.CounterWrites.WithLabelValues("ok").Inc()
	s.deferred = nil
	s.lastSynced = s.clock.Now()
	if s.version == version && s.debounceTimer == nil {
		s.dirty = false
	}
	if errors.Is(s.lastErr, ErrRemoteWriteFailed) {
		s.lastErr = nil
	}
	logger.Debug("remote write completed")
	s.emitLocked(Event{Kind: EventWriteCompleted})
	return nil
}

func (s *Store) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation && s.phase == PhaseSynced
}

// Flush writes pending edits now instead of waiting for the debounce. It also
// retries the last failed write unless a newer remote snapshot has replaced
// the edit in the meantime. Flush is a no-op when nothing is pending or
// the first snapshot has not arrived.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseSynced || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.stopDebounceLocked()
	s.writing++
	gen, doc, version, key := s.generation, s.doc.Clone(), s.version, s.key
	s.mu.Unlock()

	return s.write(ctx, gen, key, doc, version)
}

// WaitSynced blocks until the first snapshot of the current binding has been
// ingested. It returns ErrAuthRequired when nothing is bound or the binding
// ends while waiting.
func (s *Store) WaitSynced(ctx context.Context) error {
	s.mu.Lock()
	switch s.phase {
	case PhaseUnlinked:
		s.mu.Unlock()
		return ErrAuthRequired
	case PhaseSynced:
		s.mu.Unlock()
		return nil
	}
	ready, done := s.ready, s.bindCtx.Done()
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-done:
		return ErrAuthRequired
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unbind drops the current identity: the subscription and timers stop, the
// cached copy is removed and the in-memory document returns to the default.
// Callbacks still in flight for the old binding are ignored.
func (s *Store) Unbind() {
	s.mu.Lock()
	if s.phase == PhaseUnlinked {
		s.mu.Unlock()
		return
	}
	key := s.key
	unsub := s.resetLocked()
	if err := s.cache.Clear(key); err != nil {
		s.logger.WithField("key", key).Warnf("clear local cache: %s", err)
	}
	s.emitLocked(Event{Kind: EventUnbound, Document: s.doc.Clone()})
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.logger.WithField("key", key).Info("unbound identity")
}

// resetLocked ends the current binding and returns its unsubscribe function,
// which the caller runs after releasing the lock.
func (s *Store) resetLocked() func() {
	s.generation++
	s.stopDebounceLocked()
	if s.resubscribeTimer != nil {
		s.resubscribeTimer.Stop()
		s.resubscribeTimer = nil
	}
	if s.bindCancel != nil {
		s.bindCancel()
		s.bindCancel = nil
	}
	unsub := s.unsubscribe
	s.unsubscribe = nil

	s.identity = ""
	s.key = ""
	s.doc = workout.Default()
	s.version++
	s.blocked = false
	s.dirty = false
	s.writing = 0
	s.deferred = nil
	s.lastErr = nil
	s.failures = 0
	s.lastSynced = time.Time{}
	if s.phase != PhaseUnlinked {
		s.setPhaseLocked(PhaseUnlinked)
	}
	return unsub
}

// Close stops the store without touching the local cache. Pending edits that
// were not flushed stay local.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.resetLocked()
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.bus.Close()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		Phase:               s.phase,
		Identity:            s.identity,
		Document:            s.doc.Clone(),
		Blocked:             s.blocked,
		PendingWrite:        s.dirty,
		ConsecutiveFailures: s.failures,
		LastSynced:          s.lastSynced,
	}
	if s.lastErr != nil {
		view.LastError = fmt.Errorf("%w", s.lastErr)
	}
	return view
}

// Document returns a deep copy of the current document.
func (s *Store) Document() workout.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Phase returns the current phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Store) setPhaseLocked(p Phase) {
	s.phase = p
	s.metrics.GaugePhase.Set(float64(p))
	s.emitLocked(Event{Kind: EventPhaseChanged})
}

func (s *Store) emitLocked(ev Event) {
	ev.Generation = s.generation
	ev.Phase = s.phase
	s.bus.Publish(ev)
}
