package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/makstermee/Gym-planner/internal/workout"
)

// form is a small modal of labelled text inputs. submit receives the trimmed
// values; an error keeps the form open and is shown under the inputs.
type form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
	submit func(m *Model, values []string) error
}

func newForm(title string, labels, values []string, submit func(*Model, []string) error) *form {
	f := &form{title: title, labels: labels, submit: submit}
	for i := range labels {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 40
		ti.Width = 24
		if i < len(values) {
			ti.SetValue(values[i])
		}
		f.inputs = append(f.inputs, ti)
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) move(step int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + step + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

// updateForm routes input to the open form.
func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	f := m.form
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.form = nil
			return m, nil
		case "tab", "down":
			f.move(1)
			return m, nil
		case "shift+tab", "up":
			f.move(-1)
			return m, nil
		case "enter":
			if f.focus < len(f.inputs)-1 {
				f.move(1)
				return m, nil
			}
			if err := f.submit(&m, f.values()); err != nil {
				f.err = err.Error()
				return m, nil
			}
			m.form = nil
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return m, cmd
}

func (m Model) renderForm() string {
	f := m.form
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).Width(10)
	for i, in := range f.inputs {
		label := labelStyle.Render(f.labels[i])
		if i == f.focus {
			label = labelStyle.Foreground(lipgloss.Color(m.theme.Accent)).Render(f.labels[i])
		}
		b.WriteString(label + in.View() + "\n")
	}
	if f.err != "" {
		b.WriteString("\n" + styles.DangerText.Render(f.err) + "\n")
	}
	b.WriteString("\n" + styles.FaintText.Render("enter: next/save  tab: field  esc: cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 2).
		Width(48).
		Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// openExerciseForm asks for a new exercise of the selected day.
func (m *Model) openExerciseForm() {
	day := m.selectedDay()
	m.form = newForm("New exercise: "+day, []string{"Name", "Sets", "Reps"}, []string{"", "3", "10"},
		func(m *Model, v []string) error {
			sets, err := parseCount("sets", v[1])
			if err != nil {
				return err
			}
			reps, err := parseCount("reps", v[2])
			if err != nil {
				return err
			}
			tmpl := workout.ExerciseTemplate{Name: v[0], TargetSets: sets, TargetReps: reps}
			if err := m.store.Update(func(doc *workout.Document) error {
				return doc.AddExercise(day, tmpl)
			}); err != nil {
				return err
			}
			m.setFlash("Added "+tmpl.Name+" to "+day, false)
			return nil
		})
}

// openSetForm asks for a set of the selected exercise, prefilled with the
// previous set so repeated sets are one keystroke.
func (m *Model) openSetForm() {
	exercises := m.snapshot.Document.ActiveWorkout.Exercises
	if len(exercises) == 0 {
		return
	}
	exIndex := m.exRow
	ex := exercises[exIndex]
	weight, reps := "", ""
	if n := len(ex.LoggedSets); n > 0 {
		last := ex.LoggedSets[n-1]
		weight, reps = formatWeight(last.Weight), strconv.Itoa(last.Reps)
	} else {
		reps = strconv.Itoa(ex.TargetReps)
	}
	m.form = newForm("Log set: "+ex.Name, []string{"Weight", "Reps"}, []string{weight, reps},
		func(m *Model, v []string) error {
			w, err := parseWeight(v[0])
			if err != nil {
				return err
			}
			r, err := parseCount("reps", v[1])
			if err != nil {
				return err
			}
			if err := m.session.LogSet(exIndex, w, r); err != nil {
				return err
			}
			m.setFlash("", false)
			return nil
		})
}
