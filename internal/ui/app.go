package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/makstermee/Gym-planner/internal/prefs"
	"github.com/makstermee/Gym-planner/internal/session"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/timer"
	"github.com/makstermee/Gym-planner/internal/workout"
)

// View represents the current active view.
type View int

const (
	ViewWeek View = iota
	ViewWorkout
	ViewHistory
)

var viewOrder = []View{ViewWeek, ViewWorkout, ViewHistory}

// Store is the part of state.Store the UI reads and edits.
type Store interface {
	Snapshot() state.View
	Update(fn func(*workout.Document) error) error
	OnChange(fn func(state.Event)) (cancel func())
}

// Session is the command surface of session.Controller.
type Session interface {
	State() session.State
	StartWorkout(day string, confirmReplace bool) error
	LogSet(exIndex int, weight float64, reps int) error
	RemoveSet(exIndex, setIndex int) error
	StartRest(exIndex, seconds int) error
	FinishWorkout() (*workout.LogEntry, error)
	DiscardWorkout() error
	Resume() error
	OnChange(fn func(session.Event)) (cancel func())
}

// Clocks is the read side of timer.Service.
type Clocks interface {
	Display() string
	MasterRunning() bool
	Rest() timer.Rest
	OnChange(fn func(timer.Event)) (cancel func())
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Store       Store
	Session     Session
	Clocks      Clocks
	Prefs       prefs.Prefs
	PrefsPath   string
	RestOptions []int // seconds offered by the rest key
	Logger      logrus.FieldLogger
	Tick        time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx       context.Context
	store     Store
	session   Session
	clocks    Clocks
	logger    logrus.FieldLogger
	prefsPath string
	prefs     prefs.Prefs
	tick      time.Duration

	// UI state
	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot     state.View
	sessionState session.State
	lastUpdated  time.Time

	// Week view
	dayIdx    int
	planRow   int
	focusPlan bool

	// Workout view
	exRow       int
	restOptions []int
	restIdx     int

	// History view
	historyViewport viewport.Model

	// Overlays
	showHelp     bool
	modal        *confirmModal
	form         *form
	resumeOffers int // resume prompts already shown for the current pending session

	flash    string
	flashErr bool
}

// New creates the model and takes a first snapshot.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = timer.TickInterval
	}
	restOptions := append([]int(nil), opts.RestOptions...)
	if len(restOptions) == 0 {
		restOptions = []int{int(session.DefaultRest / time.Second)}
	}

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		session:     opts.Session,
		clocks:      opts.Clocks,
		logger:      logger.WithField("component", "ui"),
		prefsPath:   opts.PrefsPath,
		prefs:       opts.Prefs,
		tick:        tick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: ViewWeek,
		restOptions: restOptions,
	}
	for i, s := range restOptions {
		if s == opts.Prefs.RestSeconds {
			m.restIdx = i
		}
	}
	for i, day := range workout.DayNames {
		if day == opts.Prefs.LastDay {
			m.dayIdx = i
		}
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.historyViewport = viewport.New(m.width-4, m.contentHeight()-2)
		}
		m.ready = true
		m.updateHistoryViewport()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd(m.tick)

	case refreshMsg:
		m.refresh()
		return m, nil

	case restDoneMsg:
		m.setFlash("Rest over", false)
		m.refresh()
		return m, nil
	}

	if m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.form != nil {
		return m.renderForm()
	}
	if m.modal != nil {
		return m.renderModal()
	}
	return m.renderMain()
}

// refresh re-reads the store and the controller. A pending session found in
// the document opens the resume prompt once.
func (m *Model) refresh() {
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	if m.session != nil {
		m.sessionState = m.session.State()
	}
	m.lastUpdated = time.Now()
	m.clampSelection()
	m.updateHistoryViewport()

	if m.sessionState != session.StateResumePending {
		m.resumeOffers = 0
		if m.modal != nil && m.modal.kind == modalResume {
			m.modal = nil
		}
		return
	}
	if m.resumeOffers == 0 && m.modal == nil && m.form == nil {
		m.resumeOffers++
		m.openResumeModal()
	}
}

func (m *Model) clampSelection() {
	m.dayIdx = clamp(m.dayIdx, 0, len(workout.DayNames)-1)
	m.planRow = clamp(m.planRow, 0, len(m.selectedPlan())-1)
	m.exRow = clamp(m.exRow, 0, len(m.snapshot.Document.ActiveWorkout.Exercises)-1)
}

func (m Model) selectedDay() string {
	return workout.DayNames[m.dayIdx]
}

func (m Model) selectedPlan() []workout.ExerciseTemplate {
	return m.snapshot.Document.Plans[m.selectedDay()]
}

func (m Model) restSeconds() int {
	return m.restOptions[m.restIdx]
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// report shows err in the command bar and logs it; nil clears the bar.
func (m *Model) report(action string, err error) {
	if err == nil {
		m.setFlash("", false)
		return
	}
	m.logger.WithField("action", action).Warnf("command rejected: %s", err)
	m.setFlash(action+": "+err.Error(), true)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.modal != nil {
		return m.handleModalKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.savePrefs()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.cycleView(1)
		return m, nil
	case key.Matches(msg, m.keys.ShiftTab):
		m.cycleView(-1)
		return m, nil
	case key.Matches(msg, m.keys.ViewWeek):
		m.currentView = ViewWeek
		return m, nil
	case key.Matches(msg, m.keys.ViewWorkout):
		m.currentView = ViewWorkout
		return m, nil
	case key.Matches(msg, m.keys.ViewHistory):
		m.currentView = ViewHistory
		m.historyViewport.GotoTop()
		return m, nil
	}

	switch m.currentView {
	case ViewWeek:
		return m.handleWeekKey(msg)
	case ViewWorkout:
		return m.handleWorkoutKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	}
	return m, nil
}

func (m *Model) cycleView(step int) {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
		}
	}
	idx = (idx + step + len(viewOrder)) % len(viewOrder)
	m.currentView = viewOrder[idx]
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	m.prefs.Theme = m.theme.Name
	m.prefs.RestSeconds = m.restSeconds()
	m.prefs.LastDay = m.selectedDay()
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warnf("save prefs: %s", err)
	}
}

// startWorkout starts the selected day. An unfinished session turns into a
// replace confirmation instead of an error.
func (m *Model) startWorkout(confirm bool) {
	day := m.selectedDay()
	err := m.session.StartWorkout(day, confirm)
	if errors.Is(err, session.ErrConfirmationRequired) {
		m.openConfirm(modalReplace, "Replace the unfinished workout with "+day+"?")
		return
	}
	m.report("start", err)
	if err == nil {
		m.exRow = 0
		m.currentView = ViewWorkout
	}
	m.refresh()
}

// Messages

type tickMsg time.Time

// refreshMsg is sent when the store or the controller changed.
type refreshMsg struct{}

type restDoneMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled. Store, controller and timer events are forwarded to the
// program so the screen follows remote changes without waiting for a tick.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))

	cancels := []func(){
		opts.Store.OnChange(func(state.Event) { p.Send(refreshMsg{}) }),
		opts.Session.OnChange(func(session.Event) { p.Send(refreshMsg{}) }),
		opts.Clocks.OnChange(func(ev timer.Event) {
			if ev.Kind == timer.EventRestFinished {
				p.Send(restDoneMsg{})
			}
		}),
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
