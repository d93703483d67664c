package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"padget/internal/slides"
)

var (
	brandPrimary = lipgloss.Color("#1a73e8")
	brandMuted   = lipgloss.Color("#80868b")
	brandSuccess = lipgloss.Color("#188038")
	brandDanger  = lipgloss.Color("#d93025")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(brandPrimary)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(brandMuted)
	okStyle     = lipgloss.NewStyle().Foreground(brandSuccess)
	errStyle    = lipgloss.NewStyle().Foreground(brandDanger)
	googleBadge = lipgloss.NewStyle().Foreground(brandPrimary)
	linkBadge   = lipgloss.NewStyle().Foreground(brandMuted)
)

// kindBadge colours the Google Slides / Web Link label.
func kindBadge(k slides.Kind) string {
	if k == slides.KindGoogle {
		return googleBadge.Render(k.Label())
	}
	return linkBadge.Render(k.Label())
}

// table renders fixed rows with aligned columns.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render() string {
	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(titleStyle.Render(t.title))
		sb.WriteString("\n")
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// Width includes the padding.
	total := len(widths) - 1
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	sep := mutedStyle.Render("|")
	for i, h := range t.headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
		if i < len(t.headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			sb.WriteString(cellStyle.Width(widths[i]).Render(cell))
			if i < len(widths)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
