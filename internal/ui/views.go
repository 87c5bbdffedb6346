package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/makstermee/Gym-planner/internal/session"
	"github.com/makstermee/Gym-planner/internal/workout"
)

// renderMain renders header, command bar and the current view.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.currentView {
	case ViewWorkout:
		b.WriteString(m.renderWorkout())
	case ViewHistory:
		b.WriteString(m.renderHistory())
	default:
		b.WriteString(m.renderWeek())
	}
	return b.String()
}

func (m Model) contentHeight() int {
	return m.height - 2 // header + command bar
}

// Week view

func (m Model) handleWeekKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.focusPlan {
			m.planRow--
		} else {
			m.dayIdx--
			m.planRow = 0
		}
	case key.Matches(msg, m.keys.Down):
		if m.focusPlan {
			m.planRow++
		} else {
			m.dayIdx++
			m.planRow = 0
		}
	case key.Matches(msg, m.keys.Top):
		if m.focusPlan {
			m.planRow = 0
		} else {
			m.dayIdx = 0
		}
	case key.Matches(msg, m.keys.Bottom):
		if m.focusPlan {
			m.planRow = len(m.selectedPlan()) - 1
		} else {
			m.dayIdx = len(workout.DayNames) - 1
		}
	case key.Matches(msg, m.keys.Enter):
		m.focusPlan = true
	case key.Matches(msg, m.keys.Escape):
		m.focusPlan = false
	case key.Matches(msg, m.keys.AddExercise):
		m.openExerciseForm()
		return m, nil
	case key.Matches(msg, m.keys.RemoveExercise):
		if !m.focusPlan || len(m.selectedPlan()) == 0 {
			return m, nil
		}
		day, row := m.selectedDay(), m.planRow
		name := m.selectedPlan()[row].Name
		err := m.store.Update(func(doc *workout.Document) error {
			return doc.RemoveExercise(day, row)
		})
		m.report("remove", err)
		if err == nil {
			m.setFlash("Removed "+name+" from "+day, false)
		}
		m.refresh()
	case key.Matches(msg, m.keys.StartWorkout):
		m.startWorkout(false)
	}
	m.clampSelection()
	return m, nil
}

func (m Model) renderWeek() string {
	height := m.contentHeight()
	daysWidth := 28
	if m.width < 60 {
		daysWidth = m.width / 2
	}
	planWidth := m.width - daysWidth

	styles := m.theme.Styles()
	doc := m.snapshot.Document
	activeDay := ""
	if doc.ActiveWorkout.IsActive {
		activeDay = doc.ActiveWorkout.DayName
	}

	var days []string
	for i, day := range workout.DayNames {
		line := fmt.Sprintf(" %-14s %2d", day, len(doc.Plans[day]))
		if day == activeDay {
			line += " ●"
		}
		if i == m.dayIdx {
			line = styles.Selected.Width(daysWidth - 2).Render(line)
		}
		days = append(days, line)
	}

	plan := m.selectedPlan()
	var rows []string
	if len(plan) == 0 {
		rows = append(rows, styles.MutedText.Render(" No exercises. Press n to add one."))
	}
	for i, ex := range plan {
		line := fmt.Sprintf(" %-24s %d × %d", truncate(ex.Name, 24), ex.TargetSets, ex.TargetReps)
		if m.focusPlan && i == m.planRow {
			line = styles.Selected.Width(planWidth - 2).Render(line)
		}
		rows = append(rows, line)
	}

	left := m.renderTitledBox("Week", strings.Join(days, "\n"), daysWidth, height, !m.focusPlan)
	right := m.renderTitledBox("Plan: "+m.selectedDay(), strings.Join(rows, "\n"), planWidth, height, m.focusPlan)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// Workout view

func (m Model) handleWorkoutKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sessionState == session.StateResumePending {
		if key.Matches(msg, m.keys.Enter) {
			m.openResumeModal()
		}
		return m, nil
	}
	if m.sessionState != session.StateActive {
		if key.Matches(msg, m.keys.StartWorkout) {
			m.startWorkout(false)
		}
		return m, nil
	}

	exercises := m.snapshot.Document.ActiveWorkout.Exercises
	switch {
	case key.Matches(msg, m.keys.Up):
		m.exRow--
	case key.Matches(msg, m.keys.Down):
		m.exRow++
	case key.Matches(msg, m.keys.Top):
		m.exRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.exRow = len(exercises) - 1
	case key.Matches(msg, m.keys.LogSet):
		m.openSetForm()
	case key.Matches(msg, m.keys.RemoveSet):
		if m.exRow < len(exercises) {
			if n := len(exercises[m.exRow].LoggedSets); n > 0 {
				m.report("remove set", m.session.RemoveSet(m.exRow, n-1))
				m.refresh()
			}
		}
	case key.Matches(msg, m.keys.StartRest):
		m.report("rest", m.session.StartRest(m.exRow, m.restSeconds()))
	case key.Matches(msg, m.keys.CycleRest):
		m.restIdx = (m.restIdx + 1) % len(m.restOptions)
		m.setFlash(fmt.Sprintf("Rest length %ds", m.restSeconds()), false)
	case key.Matches(msg, m.keys.Finish):
		m.openConfirm(modalFinish, "Finish and save the workout? Exercises without sets are left out.")
	case key.Matches(msg, m.keys.Discard):
		m.openConfirm(modalDiscard, "Discard the workout without saving it?")
	}
	m.clampSelection()
	return m, nil
}

func (m Model) renderWorkout() string {
	height := m.contentHeight()
	styles := m.theme.Styles()
	active := m.snapshot.Document.ActiveWorkout

	switch m.sessionState {
	case session.StateResumePending:
		body := styles.WarningText.Render(" An unfinished workout is waiting. Press enter to resume or discard it.")
		return m.renderTitledBox("Workout", body, m.width, height, true)
	case session.StateIdle:
		body := styles.MutedText.Render(" No workout in progress. Press s to start " + m.selectedDay() + ".")
		return m.renderTitledBox("Workout", body, m.width, height, true)
	}

	var rest string
	if m.clocks != nil {
		if r := m.clocks.Rest(); r.Active {
			rest = r.Display()
		}
	}

	var rows []string
	for i, ex := range active.Exercises {
		done := len(ex.LoggedSets)
		status := styles.MutedText
		if done >= ex.TargetSets {
			status = styles.SuccessText
		}
		line := fmt.Sprintf(" %-22s %s  %s", truncate(ex.Name, 22),
			status.Render(fmt.Sprintf("%d/%d", done, ex.TargetSets)),
			formatSets(ex.LoggedSets))
		if rest != "" && m.clocks.Rest().Exercise == i {
			line += "  " + styles.InfoText.Render("rest "+rest)
		}
		if i == m.exRow {
			line = styles.Selected.Width(m.width - 2).Render(line)
		}
		rows = append(rows, line)
	}

	title := "Workout: " + active.DayName
	if m.clocks != nil && m.clocks.MasterRunning() {
		title += "  " + m.clocks.Display()
	}
	return m.renderTitledBox(title, strings.Join(rows, "\n"), m.width, height, true)
}

// History view

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ClearHist) {
		if len(m.snapshot.Document.Logs) > 0 {
			m.openConfirm(modalClearHistory, fmt.Sprintf("Delete all %d saved workouts?", len(m.snapshot.Document.Logs)))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.historyViewport, cmd = m.historyViewport.Update(msg)
	return m, cmd
}

func (m *Model) updateHistoryViewport() {
	if !m.ready {
		return
	}
	m.historyViewport.Width = m.width - 2
	m.historyViewport.Height = m.contentHeight() - 2
	m.historyViewport.SetContent(m.renderHistoryContent())
}

// renderHistoryContent lists archived workouts newest first.
func (m Model) renderHistoryContent() string {
	styles := m.theme.Styles()
	logs := m.snapshot.Document.Logs
	if len(logs) == 0 {
		return styles.MutedText.Render(" No saved workouts yet.")
	}

	var b strings.Builder
	for i := len(logs) - 1; i >= 0; i-- {
		entry := logs[i]
		b.WriteString(" ")
		b.WriteString(styles.AccentText.Bold(true).Render(entry.Date))
		b.WriteString("  " + styles.Text.Render(entry.DayName))
		b.WriteString("  " + styles.MutedText.Render(entry.Duration))
		b.WriteString("  " + styles.FaintText.Render("volume "+formatWeight(entry.Volume())))
		b.WriteString("\n")
		for _, ex := range entry.Exercises {
			b.WriteString(fmt.Sprintf("   %-22s %s\n", truncate(ex.Name, 22), formatSets(ex.LoggedSets)))
		}
		if i > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderHistory() string {
	title := fmt.Sprintf("History (%d)", len(m.snapshot.Document.Logs))
	return m.renderTitledBox(title, m.historyViewport.View(), m.width, m.contentHeight(), true)
}
