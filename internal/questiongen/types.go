package questiongen

import (
	"fmt"

	"github.com/abhisek/actprep/internal/subject"
)

// OptionLabels are the four answer labels in display order.
var OptionLabels = []string{"A", "B", "C", "D"}

// Options holds the four labelled answer choices.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the option text for label, or "" for an unknown label.
func (o Options) Get(label string) string {
	switch label {
	case "A":
		return o.A
	case "B":
		return o.B
	case "C":
		return o.C
	case "D":
		return o.D
	}
	return ""
}

func (o *Options) set(label, text string) {
	switch label {
	case "A":
		o.A = text
	case "B":
		o.B = text
	case "C":
		o.C = text
	case "D":
		o.D = text
	}
}

// Complete reports whether all four options are non-empty.
func (o Options) Complete() bool {
	return o.A != "" && o.B != "" && o.C != "" && o.D != ""
}

// Any reports whether at least one option is set.
func (o Options) Any() bool {
	return o.A != "" || o.B != "" || o.C != "" || o.D != ""
}

// Question is one generated multiple-choice practice question. The JSON shape
// is the wire contract shared with the model and HTTP clients.
type Question struct {
	Context       string  `json:"context"`
	Question      string  `json:"question"`
	Options       Options `json:"options"`
	CorrectOption string  `json:"correct_option"`
	Explanation   string  `json:"explanation"`
	Category      string  `json:"category"`
	Difficulty    string  `json:"difficulty"`

	// Error is set only on the synthetic error question.
	Error string `json:"error,omitempty"`
}

// Subject resolves the question's category.
func (q Question) Subject() (subject.Subject, bool) {
	s, err := subject.Parse(q.Category)
	return s, err == nil
}

// IsError reports whether q is the synthetic error question.
func (q Question) IsError() bool {
	return q.Error != ""
}

// Correct reports whether label is the correct option.
func (q Question) Correct(label string) bool {
	return label == q.CorrectOption
}

const (
	// CategoryError marks the synthetic error question.
	CategoryError = "Error"

	// CategoryUnknown is used for salvaged questions without a resolvable category.
	CategoryUnknown = "Unknown"

	// DifficultyNA is the difficulty of the synthetic error question.
	DifficultyNA = "N/A"
)

// ErrorQuestion builds the synthetic question returned when generation fails.
// It is well-formed so callers can render it like any other question.
func ErrorQuestion(err error) Question {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Question{
		Context:       "Error occurred",
		Question:      "Error generating question",
		Options:       Options{A: DifficultyNA, B: DifficultyNA, C: DifficultyNA, D: DifficultyNA},
		CorrectOption: "A",
		Explanation:   msg,
		Category:      CategoryError,
		Difficulty:    DifficultyNA,
		Error:         msg,
	}
}

// Input holds everything needed to request a batch of questions. Score maps
// are keyed by subject; missing subjects are rendered as unknown.
type Input struct {
	Personal map[subject.Subject]int
	Regional map[subject.Subject]int
	Baseline map[subject.Subject]int

	// History lists previously seen questions, oldest first.
	History []Question
}

// Source identifies which parse path produced a Result.
type Source string

const (
	SourceStrict    Source = "strict"
	SourceHeuristic Source = "heuristic"
	SourceSynthetic Source = "synthetic"
)

// Result is the outcome of one generation request. Questions is never empty.
type Result struct {
	Questions []Question
	Source    Source

	// Discarded counts records rejected by validation.
	Discarded int
}

// Generation stages reported in GenerationError.
const (
	StageRequest = "request"
	StageParse   = "parse"
)

// GenerationError reports a failed generation request. It is returned
// together with a Result holding the synthetic error question.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// CorrectOptionSpread counts how often each label is the correct option.
func CorrectOptionSpread(questions []Question) map[string]int {
	spread := make(map[string]int, len(OptionLabels))
	for _, l := range OptionLabels {
		spread[l] = 0
	}
	for _, q := range questions {
		if _, ok := spread[q.CorrectOption]; ok {
			spread[q.CorrectOption]++
		}
	}
	return spread
}
