package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/actprep/internal/subject"
)

const systemPrompt = `You are an educational assistant that generates targeted ACT practice questions based on weaknesses and test performance analysis. Return responses in JSON format. Always include necessary context for questions.`

const instructions = `Generate 4 ACT-style multiple choice practice questions, one for each subject (Mathematics, Reading, Science, English), focusing on areas needing improvement.
For each question:
1. Include any necessary context (passages, equations, diagrams described in text, etc.) before the question
2. Provide the actual question
3. Include four multiple choice options (A, B, C, D)
4. Indicate the correct answer
5. Provide a detailed explanation
6. Specify the category (Mathematics/Reading/Science/English)
7. Specify the difficulty level (Easy/Medium/Hard)

Format each question as JSON with the following structure:
{
    "context": "Any necessary passage, equation, or background information...",
    "question": "question text",
    "options": {"A": "first option", "B": "second option", "C": "third option", "D": "fourth option"},
    "correct_option": "A",
    "explanation": "explanation text",
    "category": "subject category",
    "difficulty": "difficulty level"
}

For Reading and English questions, ALWAYS include a relevant passage in the context.
For Mathematics questions, include any necessary equations or diagrams described in text.
For Science questions, include any relevant data, graphs described in text, or experimental setup.

Return all questions in a single JSON array. Make sure distractors (incorrect options) are plausible but clearly incorrect to a knowledgeable test-taker. Include common misconceptions as distractors.
The correct answer should be randomly distributed among A, B, C, and D across questions.
Do not repeat any question from the previously answered list.`

// buildUserMessage renders the score tables, history and instructions.
func buildUserMessage(input Input, cfg Config) string {
	var b strings.Builder

	b.WriteString("Given the following test results:\n")
	fmt.Fprintf(&b, "User ACT Results: %s\n", formatScores(input.Personal))
	fmt.Fprintf(&b, "Regional ACT Results: %s\n", formatScores(input.Regional))
	fmt.Fprintf(&b, "USA Median ACT Results: %s\n", formatScores(input.Baseline))

	b.WriteString("\nQuestions previously answered:\n")
	b.WriteString(buildHistory(input.History, cfg.MaxHistory))

	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

// formatScores renders scores in canonical subject order.
func formatScores(scores map[subject.Subject]int) string {
	parts := make([]string, 0, len(subject.All()))
	for _, s := range subject.All() {
		if v, ok := scores[s]; ok {
			parts = append(parts, fmt.Sprintf("%s %d", s, v))
		} else {
			parts = append(parts, fmt.Sprintf("%s unknown", s))
		}
	}
	return strings.Join(parts, ", ")
}

// buildHistory lists the most recent limit questions. Returns "None" when empty.
func buildHistory(history []Question, limit int) string {
	var texts []string
	for _, q := range history {
		if q.IsError() || strings.TrimSpace(q.Question) == "" {
			continue
		}
		texts = append(texts, q.Question)
	}
	if len(texts) == 0 {
		return "None"
	}
	if limit > 0 && len(texts) > limit {
		texts = texts[len(texts)-limit:]
	}

	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return strings.TrimRight(b.String(), "\n")
}
