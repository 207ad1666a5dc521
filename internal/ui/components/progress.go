package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/actprep/internal/ui/theme"
)

// ScoreMax is the top of the ACT scale.
const ScoreMax = 36.0

// ScoreBar displays a score on the 0-36 scale as a horizontal bar.
type ScoreBar struct {
	Label string
	Score float64
	Width int
	Color color.Color
}

// NewScoreBar creates a score bar filled in the given color.
func NewScoreBar(label string, score float64, width int, c color.Color) ScoreBar {
	return ScoreBar{Label: label, Score: score, Width: width, Color: c}
}

// View renders the score bar.
func (p ScoreBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Width(12).Render(p.Label)
	}

	const scoreWidth = 7 // " 36.00"
	barWidth := p.Width - lipgloss.Width(result) - scoreWidth
	if barWidth < 4 {
		barWidth = 4
	}

	frac := p.Score / ScoreMax
	filled := int(float64(barWidth) * frac)
	filled = max(0, min(filled, barWidth))
	empty := barWidth - filled

	fill := p.Color
	if fill == nil {
		fill = theme.Secondary
	}
	result += lipgloss.NewStyle().Background(fill).Render(strings.Repeat(" ", filled))
	result += theme.ProgressEmpty.Render(strings.Repeat(" ", empty))
	result += lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf(" %6.2f", p.Score))

	return result
}
