package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/makstermee/Gym-planner/internal/session"
	"github.com/makstermee/Gym-planner/internal/state"
)

// phaseLabel is the badge shown for the sync state. Repeated subscription
// failures show as offline even though the phase is unchanged.
func phaseLabel(v state.View) string {
	if v.Phase != state.PhaseUnlinked && v.IsOffline() {
		return "offline"
	}
	return v.Phase.String()
}

// renderHeader renders the status bar: sync state, session state and clocks.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100

	parts := []string{bg.Render("gymplanner", styles.Logo)}

	v := m.snapshot
	label := phaseLabel(v)
	parts = append(parts, styles.StatusStyle(label).Render(strings.ToUpper(label)))
	if v.Identity != "" {
		parts = append(parts, bg.Render(truncate(v.Identity, 20), styles.MutedText))
	}
	if v.Blocked {
		parts = append(parts, styles.StatusStyle("local").Render("LOCAL ONLY"))
	} else if v.PendingWrite {
		parts = append(parts, bg.Render("● saving", styles.WarningText))
	}

	switch m.sessionState {
	case session.StateActive:
		day := v.Document.ActiveWorkout.DayName
		parts = append(parts,
			styles.StatusStyle("active").Render("WORKOUT"),
			bg.Render(day, styles.Text),
		)
		if m.clocks != nil && m.clocks.MasterRunning() {
			parts = append(parts, bg.Render(m.clocks.Display(), styles.AccentText.Bold(true)))
		}
	case session.StateResumePending:
		parts = append(parts, styles.StatusStyle("resume-pending").Render("UNFINISHED"))
	}

	if m.clocks != nil {
		if rest := m.clocks.Rest(); rest.Active {
			parts = append(parts,
				styles.StatusStyle("rest").Render("REST")+bg.Spaces(1)+
					bg.Render(rest.Display(), styles.InfoText.Bold(true)))
		}
	}

	if !v.LastSynced.IsZero() && !compact {
		parts = append(parts, bg.Render("synced "+formatAgo(time.Since(v.LastSynced)), styles.FaintText))
	}

	if v.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Spaces(1)+
				bg.Render(truncate(v.LastError.Error(), maxErr), styles.DangerText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the key hints of the current view, or the last
// command result when there is one.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.flash != "" {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		return styles.Header.Width(m.width).Render(bg.Render(truncate(m.flash, m.width-2), style))
	}

	type cmd struct{ key, desc string }
	var commands []cmd
	switch m.currentView {
	case ViewWorkout:
		commands = []cmd{
			{"j/k", "Exercise"},
			{"enter", "Log set"},
			{"-", "Undo set"},
			{"r", fmt.Sprintf("Rest %ds", m.restSeconds())},
			{"R", "Rest length"},
			{"f", "Finish"},
			{"D", "Discard"},
		}
	case ViewHistory:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"C", "Clear"},
			{"w", "Week"},
		}
	default:
		if m.focusPlan {
			commands = []cmd{
				{"j/k", "Exercise"},
				{"n", "Add"},
				{"x", "Remove"},
				{"s", "Start"},
				{"esc", "Days"},
			}
		} else {
			commands = []cmd{
				{"j/k", "Day"},
				{"enter", "Edit plan"},
				{"n", "Add"},
				{"s", "Start"},
				{"a", "Workout"},
				{"y", "History"},
			}
		}
	}
	commands = append(commands, cmd{"?", "More"})

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}
