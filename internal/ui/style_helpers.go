package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders segments that keep a background color across the spaces
// between them. lipgloss resets attributes after every Render, so a plain
// space between two styled words would show the terminal background.
type BgStyle struct {
	bg    lipgloss.Color
	space string
}

// NewBgStyle returns a helper for the given background color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render applies style plus the background to every word of text.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	wordStyle := style.Background(b.bg)
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = wordStyle.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	return lipgloss.NewStyle().Background(b.bg).Render(strings.Repeat(" ", n))
}

// Join joins parts with a styled separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, lipgloss.NewStyle().Background(b.bg).Render(sep))
}

// renderTitledBox draws content inside a single-line border with title set
// into the top edge. Content is padded or cut to exactly fill the box.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor, bgColor = m.theme.BorderFocus, m.theme.FocusBg
	}
	if width < 4 || height < 2 {
		return ""
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	inner := width - 2
	title = truncate(title, inner-2)
	titleWidth := lipgloss.Width(title) + 2
	left := (inner - titleWidth) / 2
	right := inner - titleWidth - left

	var b strings.Builder
	b.WriteString(bg.Render("┌"+strings.Repeat("─", max(left, 0)), borderStyle))
	b.WriteString(bg.Render(" "+title+" ", titleStyle))
	b.WriteString(bg.Render(strings.Repeat("─", max(right, 0))+"┐", borderStyle))
	b.WriteString("\n")

	lineStyle := lipgloss.NewStyle().Width(inner).MaxWidth(inner).Background(lipgloss.Color(bgColor))
	lines := strings.Split(content, "\n")
	for i := 0; i < height-2; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		b.WriteString(bg.Render("│", borderStyle))
		b.WriteString(lineStyle.Render(line))
		b.WriteString(bg.Render("│", borderStyle))
		b.WriteString("\n")
	}
	b.WriteString(bg.Render("└"+strings.Repeat("─", inner)+"┘", borderStyle))
	return b.String()
}
