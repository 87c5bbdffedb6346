package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/makstermee/Gym-planner/internal/workout"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgYellow, color.Bold)
	dayColor    = color.New(color.FgGreen, color.Bold)
	nameColor   = color.New(color.FgMagenta, color.Bold)
	faintColor  = color.New(color.Faint)
	activeColor = color.New(color.FgRed, color.Bold)
)

// printBoxedHeader prints title centered in a box of fixed width.
func printBoxedHeader(w io.Writer, title string) {
	const width = 40
	border := strings.Repeat("═", width)
	headerColor.Fprintln(w, "╔"+border+"╗")
	headerColor.Fprintln(w, "║"+centerText(title, width)+"║")
	headerColor.Fprintln(w, "╚"+border+"╝")
}

func centerText(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

func printMetric(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s: %v\n", labelColor.Sprint(label), value)
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSets(sets []workout.LoggedSet) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = formatWeight(s.Weight) + "×" + strconv.Itoa(s.Reps)
	}
	return strings.Join(parts, " ")
}

// resolveDay accepts a day name in any case or its 1-based position in the
// week.
func resolveDay(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(workout.DayNames) {
			return workout.DayNames[n-1], nil
		}
		return "", fmt.Errorf("%w: day %d, want 1-%d", workout.ErrUnknownDay, n, len(workout.DayNames))
	}
	for _, day := range workout.DayNames {
		if strings.EqualFold(day, arg) {
			return day, nil
		}
	}
	return "", fmt.Errorf("%w: %q (one of %s)", workout.ErrUnknownDay, arg, strings.Join(workout.DayNames, ", "))
}
