package questiongen

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/abhisek/actprep/internal/llm"
	"github.com/abhisek/actprep/internal/subject"
)

// errNoRecords means the text held no JSON object or array of objects.
var errNoRecords = errors.New("no JSON question records found")

// stripFences returns the body of the first ```json or bare ``` block. An
// unterminated fence keeps everything after it; a lone closing fence is
// dropped.
func stripFences(text string) string {
	open := "```json"
	start := strings.Index(text, open)
	if start < 0 {
		open = "```"
		start = strings.Index(text, open)
	}
	if start < 0 {
		return strings.TrimSpace(text)
	}

	body := text[start+len(open):]
	if end := strings.Index(body, "```"); end >= 0 {
		return strings.TrimSpace(body[:end])
	}
	if open == "```" && strings.TrimSpace(body) == "" {
		return strings.TrimSpace(text[:start])
	}
	return strings.TrimSpace(body)
}

// extractRecords finds the question records in text. It accepts a JSON array,
// a single object, or an object with a "questions" array. When the text has
// prose around the JSON, the outermost array is tried.
func extractRecords(text string) ([]json.RawMessage, error) {
	raw := []byte(text)
	if recs, err := decodeRecords(raw); err == nil {
		return recs, nil
	}

	start, end := bytes.IndexByte(raw, '['), bytes.LastIndexByte(raw, ']')
	if start >= 0 && end > start {
		if recs, err := decodeRecords(raw[start : end+1]); err == nil {
			return recs, nil
		}
	}
	return nil, errNoRecords
}

func decodeRecords(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errNoRecords
	}

	switch raw[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, err
		}
		return arr, nil
	case '{':
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		if wrapper.Questions != nil {
			return wrapper.Questions, nil
		}
		return []json.RawMessage{json.RawMessage(raw)}, nil
	}
	return nil, errNoRecords
}

// parseStrict validates each record against QuestionSchema and the
// validators. Invalid records are discarded and counted.
func parseStrict(text string, validators []Validator) ([]Question, int, error) {
	records, err := extractRecords(text)
	if err != nil {
		return nil, 0, err
	}

	var (
		out       []Question
		discarded int
	)
	for _, rec := range records {
		q, ok := parseRecord(rec, validators)
		if !ok {
			discarded++
			continue
		}
		out = append(out, q)
	}
	return out, discarded, nil
}

func parseRecord(rec json.RawMessage, validators []Validator) (Question, bool) {
	var fields map[string]any
	if err := json.Unmarshal(rec, &fields); err != nil {
		return Question{}, false
	}
	canonicalize(fields)

	canon, err := json.Marshal(fields)
	if err != nil {
		return Question{}, false
	}
	if err := llm.Validate(QuestionSchema, canon); err != nil {
		return Question{}, false
	}

	var q Question
	if err := json.Unmarshal(canon, &q); err != nil {
		return Question{}, false
	}
	q.Error = ""
	for _, v := range validators {
		if verr := v.Validate(&q); verr != nil {
			return Question{}, false
		}
	}
	return q, true
}

// canonicalize rewrites category aliases and difficulty casing in place and
// upper-cases the correct option label.
func canonicalize(fields map[string]any) {
	if c, ok := fields["category"].(string); ok {
		if s, err := subject.Parse(c); err == nil {
			fields["category"] = string(s)
		}
	}
	if d, ok := fields["difficulty"].(string); ok {
		if diff, ok := subject.ParseDifficulty(d); ok {
			fields["difficulty"] = string(diff)
		}
	}
	if l, ok := fields["correct_option"].(string); ok {
		if label, ok := parseLabel(l); ok {
			fields["correct_option"] = label
		}
	}
}

// parseLabel accepts "B", "b", "B)", "B." or "B) text".
func parseLabel(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	switch s[0] {
	case 'A', 'B', 'C', 'D':
	default:
		return "", false
	}
	if len(s) == 1 || strings.ContainsRune(").: ", rune(s[1])) {
		return s[:1], true
	}
	return "", false
}

var questionPrefixes = []string{"question:", "q:", "problem:"}

// parseHeuristic salvages questions from line-oriented text. A question
// starts at a "Question:"/"Q:"/"Problem:" line and is kept only if all four
// options were found and, for passage subjects, a context was given.
//
// A "Context:" line belongs to the open question until that question has
// options; after that, or before any question, it is held for the next one.
func parseHeuristic(text string) ([]Question, int) {
	var (
		out       []Question
		discarded int
		cur       *Question
		pending   string
	)
	contextCheck := &ContextValidator{}

	flush := func() {
		if cur == nil {
			return
		}
		if cur.Options.Complete() && contextCheck.Validate(cur) == nil {
			out = append(out, *cur)
		} else {
			discarded++
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if body, ok := cutPrefixAny(line, lower, questionPrefixes); ok {
			flush()
			if body == "" {
				continue
			}
			cur = &Question{
				Context:       pending,
				Question:      body,
				CorrectOption: "A",
				Category:      CategoryUnknown,
				Difficulty:    string(subject.Medium),
			}
			pending = ""
			continue
		}
		if strings.HasPrefix(lower, "context:") || strings.HasPrefix(lower, "passage:") {
			if cur != nil && cur.Context == "" && !cur.Options.Any() {
				cur.Context = afterColon(line)
			} else {
				pending = afterColon(line)
			}
			continue
		}
		if cur == nil {
			continue
		}

		if label, body, ok := optionLine(line); ok {
			cur.Options.set(label, body)
			continue
		}

		switch {
		case strings.HasPrefix(lower, "correct:"), strings.HasPrefix(lower, "answer:"),
			strings.HasPrefix(lower, "correct answer:"):
			if label, ok := parseLabel(afterColon(line)); ok {
				cur.CorrectOption = label
			}
		case strings.HasPrefix(lower, "explanation:"):
			cur.Explanation = afterColon(line)
		case strings.HasPrefix(lower, "category:"), strings.HasPrefix(lower, "subject:"):
			if s, err := subject.Parse(afterColon(line)); err == nil {
				cur.Category = string(s)
			}
		case strings.HasPrefix(lower, "difficulty:"):
			if d, ok := subject.ParseDifficulty(afterColon(line)); ok {
				cur.Difficulty = string(d)
			}
		}
	}
	flush()
	return out, discarded
}

func cutPrefixAny(line, lower string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(line[len(p):]), true
		}
	}
	return "", false
}

// optionLine matches "A) text", "A. text" and "A: text".
func optionLine(line string) (string, string, bool) {
	if len(line) < 2 {
		return "", "", false
	}
	label := line[:1]
	if !strings.Contains("ABCD", label) || !strings.ContainsRune(").:", rune(line[1])) {
		return "", "", false
	}
	return label, strings.TrimSpace(line[2:]), true
}

func afterColon(line string) string {
	_, after, _ := strings.Cut(line, ":")
	return strings.TrimSpace(after)
}
