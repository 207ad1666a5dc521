package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/ui/theme"
)

// QuestionCard renders one generated question. When Chosen is set the
// correct option is highlighted and the explanation is shown.
type QuestionCard struct {
	Index    int
	Question questiongen.Question
	Chosen   string
	Width    int
}

// View renders the card.
func (c QuestionCard) View() string {
	q := c.Question
	if q.IsError() {
		body := theme.Incorrect.Render("Could not generate questions") + "\n" +
			theme.Hint.Render(q.Explanation)
		return theme.ErrorCard.Width(c.width()).Render(body)
	}

	var b strings.Builder

	header := fmt.Sprintf("Question %d", c.Index)
	tag := fmt.Sprintf("%s · %s", q.Category, q.Difficulty)
	b.WriteString(theme.Title.Render(header) + "  " + theme.Subtitle.Render(tag) + "\n")

	if ctx := strings.TrimSpace(q.Context); ctx != "" {
		b.WriteString("\n" + theme.Hint.Width(c.width()-4).Render(ctx) + "\n")
	}
	b.WriteString("\n" + theme.Body.Bold(true).Render(q.Question) + "\n\n")

	for _, label := range questiongen.OptionLabels {
		line := fmt.Sprintf("%s)  %s", label, q.Options.Get(label))
		b.WriteString(c.optionStyle(label).Render(line) + "\n")
	}

	if c.Chosen != "" {
		b.WriteString("\n")
		if q.Correct(c.Chosen) {
			b.WriteString(theme.Correct.Render("Correct!"))
		} else {
			b.WriteString(theme.Incorrect.Render("Incorrect. The correct answer is " + q.CorrectOption + "."))
		}
		if q.Explanation != "" {
			b.WriteString("\n" + theme.Hint.Width(c.width()-4).Render(q.Explanation))
		}
	}

	return theme.Card.Width(c.width()).Render(b.String())
}

func (c QuestionCard) optionStyle(label string) lipgloss.Style {
	switch {
	case c.Chosen == "":
		return theme.Body
	case c.Question.Correct(label):
		return theme.Correct
	case label == c.Chosen:
		return theme.Incorrect
	}
	return lipgloss.NewStyle().Foreground(theme.TextDim)
}

func (c QuestionCard) width() int {
	if c.Width <= 0 {
		return 80
	}
	return c.Width
}
