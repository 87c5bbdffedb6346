package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewWeek    key.Binding
	ViewWorkout key.Binding
	ViewHistory key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Enter  key.Binding

	// Plan editing
	AddExercise    key.Binding
	RemoveExercise key.Binding
	StartWorkout   key.Binding

	// Active workout
	LogSet     key.Binding
	RemoveSet  key.Binding
	StartRest  key.Binding
	CycleRest  key.Binding
	Finish     key.Binding
	Discard    key.Binding
	ClearHist  key.Binding
	ConfirmYes key.Binding
	ConfirmNo  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Cycle views (reverse)"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),

		ViewWeek: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Week plan"),
		),
		ViewWorkout: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Active workout"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "History"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open"),
		),

		AddExercise: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New exercise"),
		),
		RemoveExercise: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove exercise"),
		),
		StartWorkout: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Start workout"),
		),

		LogSet: key.NewBinding(
			key.WithKeys("enter", "+"),
			key.WithHelp("enter", "Log set"),
		),
		RemoveSet: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Remove last set"),
		),
		StartRest: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Start rest"),
		),
		CycleRest: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Cycle rest length"),
		),
		Finish: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Finish workout"),
		),
		Discard: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Discard workout"),
		),
		ClearHist: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear history"),
		),
		ConfirmYes: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Yes"),
		),
		ConfirmNo: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "No"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewWeek, k.ViewWorkout, k.ViewHistory, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.Enter},
		{k.AddExercise, k.RemoveExercise, k.StartWorkout},
		{k.LogSet, k.RemoveSet, k.StartRest, k.CycleRest, k.Finish, k.Discard},
		{k.ClearHist},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
