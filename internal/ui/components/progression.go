package components

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/actprep/internal/progression"
	"github.com/abhisek/actprep/internal/subject"
	"github.com/abhisek/actprep/internal/ui/theme"
)

// ProgressView renders per-subject summaries, score bars and the chart table.
type ProgressView struct {
	Summaries []progression.Summary
	Stats     map[subject.Subject]progression.SubjectStats
	Rows      []progression.ChartRow
	Strongest string
	Degraded  bool
	Width     int

	// SinceLast is the score change per subject since SinceAt. Nil hides
	// the line.
	SinceLast map[subject.Subject]float64
	SinceAt   time.Time

	// MaxRows limits the chart table to the most recent rows. 0 shows all.
	MaxRows int
}

// View renders the progress report.
func (v ProgressView) View() string {
	width := v.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render("ACT Progress") + "\n")
	if v.Degraded {
		b.WriteString(theme.Warning.Render("Response history unavailable; showing starting scores only.") + "\n")
	}
	b.WriteString("\n")

	for _, s := range v.Summaries {
		b.WriteString(NewScoreBar(string(s.Subject), s.Latest, width-24, theme.SubjectColor(s.Subject)).View())
		b.WriteString("  " + delta(s.Delta))
		st := v.Stats[s.Subject]
		b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  %d answered, %.0f%%", st.Count, st.Accuracy)))
		b.WriteString("\n")
	}

	b.WriteString("\n" + theme.Body.Render("Strongest subject: ") + theme.Correct.Render(v.Strongest) + "\n")
	if v.SinceLast != nil {
		b.WriteString(v.sinceLast() + "\n")
	}

	if len(v.Rows) > 1 {
		b.WriteString("\n" + v.chart())
	}
	return b.String()
}

func (v ProgressView) chart() string {
	rows := v.Rows
	if v.MaxRows > 0 && len(rows) > v.MaxRows {
		rows = rows[len(rows)-v.MaxRows:]
	}

	cell := lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	var b strings.Builder

	b.WriteString(cell.Foreground(theme.TextDim).Render("Test #"))
	for _, s := range subject.All() {
		b.WriteString(cell.Foreground(theme.SubjectColor(s)).Render(s.Short()))
	}
	b.WriteString("\n")

	for _, row := range rows {
		b.WriteString(cell.Foreground(theme.TextDim).Render(fmt.Sprintf("%d", row.Step)))
		for _, s := range subject.All() {
			text := "-"
			if score, ok := row.Scores[s]; ok {
				text = fmt.Sprintf("%.2f", score)
			}
			b.WriteString(cell.Foreground(theme.Text).Render(text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (v ProgressView) sinceLast() string {
	parts := make([]string, 0, len(v.SinceLast))
	for _, s := range subject.All() {
		if d, ok := v.SinceLast[s]; ok {
			parts = append(parts, s.Short()+" "+delta(d))
		}
	}
	label := fmt.Sprintf("Since last check (%s): ", v.SinceAt.Local().Format("Jan 2 15:04"))
	return theme.Body.Render(label) + strings.Join(parts, "  ")
}

func delta(d float64) string {
	text := fmt.Sprintf("%+.2f", d)
	switch {
	case d > 0:
		return theme.Correct.Render(text)
	case d < 0:
		return theme.Incorrect.Render(text)
	}
	return theme.Subtitle.Render(text)
}
