package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/makstermee/Gym-planner/internal/timer"
	"github.com/makstermee/Gym-planner/internal/workout"
)

type modalKind int

const (
	modalResume modalKind = iota + 1
	modalReplace
	modalFinish
	modalDiscard
	modalClearHistory
)

// confirmModal is a yes/no question. For modalResume "no" discards the
// unfinished session and esc postpones the decision.
type confirmModal struct {
	kind  modalKind
	title string
	body  string
}

func (m *Model) openConfirm(kind modalKind, body string) {
	titles := map[modalKind]string{
		modalReplace:      "Replace workout",
		modalFinish:       "Finish workout",
		modalDiscard:      "Discard workout",
		modalClearHistory: "Clear history",
	}
	m.modal = &confirmModal{kind: kind, title: titles[kind], body: body}
}

func (m *Model) openResumeModal() {
	active := m.snapshot.Document.ActiveWorkout
	elapsed := ""
	if !active.StartTime.IsZero() {
		elapsed = timer.FormatElapsed(m.lastUpdated.Sub(active.StartTime))
	}
	body := fmt.Sprintf("An unfinished %s workout was found (started %s, %s ago).\nResume it?",
		active.DayName, active.StartTime.Local().Format("Mon 15:04"), elapsed)
	m.modal = &confirmModal{kind: modalResume, title: "Resume workout", body: body}
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kind := m.modal.kind
	switch {
	case key.Matches(msg, m.keys.ConfirmYes):
		m.modal = nil
		m.confirm(kind)
	case key.Matches(msg, m.keys.ConfirmNo):
		m.modal = nil
		if kind == modalResume {
			m.report("discard", m.session.DiscardWorkout())
		}
	case key.Matches(msg, m.keys.Escape):
		m.modal = nil
	case key.Matches(msg, m.keys.Quit):
		m.savePrefs()
		return m, tea.Quit
	}
	m.refresh()
	return m, nil
}

func (m *Model) confirm(kind modalKind) {
	switch kind {
	case modalResume:
		err := m.session.Resume()
		m.report("resume", err)
		if err == nil {
			m.currentView = ViewWorkout
		}
	case modalReplace:
		m.startWorkout(true)
	case modalFinish:
		entry, err := m.session.FinishWorkout()
		m.report("finish", err)
		if err != nil {
			return
		}
		if entry == nil {
			m.setFlash("Nothing logged, workout dropped", false)
			m.currentView = ViewWeek
			return
		}
		m.setFlash(fmt.Sprintf("Saved %s: %s, volume %s", entry.DayName, entry.Duration, formatWeight(entry.Volume())), false)
		m.currentView = ViewHistory
		m.historyViewport.GotoTop()
	case modalDiscard:
		m.report("discard", m.session.DiscardWorkout())
		m.currentView = ViewWeek
	case modalClearHistory:
		m.report("clear history", m.store.Update(func(doc *workout.Document) error {
			doc.ClearLogs()
			return nil
		}))
	}
}

func (m Model) renderModal() string {
	styles := m.theme.Styles()
	border := m.theme.BorderFocus
	if m.modal.kind == modalDiscard || m.modal.kind == modalClearHistory {
		border = m.theme.Danger
	}

	hint := "y: yes  n: no  esc: cancel"
	if m.modal.kind == modalResume {
		hint = "y: resume  n: discard  esc: later"
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(m.modal.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(m.modal.body))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render(hint))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Width(56).
		Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
