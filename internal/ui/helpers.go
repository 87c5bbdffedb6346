package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/makstermee/Gym-planner/internal/workout"
)

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// truncate shortens s to max runes with a trailing ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatWeight drops a zero fraction: 100 → "100", 62.5 → "62.5".
func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// formatSets renders logged sets as "100×5 100×5 95×6".
func formatSets(sets []workout.LoggedSet) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = fmt.Sprintf("%s×%d", formatWeight(s.Weight), s.Reps)
	}
	return strings.Join(parts, " ")
}

// parseWeight accepts a decimal comma as typed on Polish keyboards.
func parseWeight(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, nil
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("weight %q is not a number", s)
	}
	return w, nil
}

func parseCount(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a whole number", name, strings.TrimSpace(s))
	}
	return n, nil
}
