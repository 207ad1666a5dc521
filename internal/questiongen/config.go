package questiongen

import (
	"time"

	"github.com/abhisek/actprep/internal/subject"
)

// Config controls the behavior of the Generator.
type Config struct {
	// Validators run in order on every strictly parsed question; the first
	// failure discards the question.
	Validators []Validator

	// MaxTokens is the token budget for the model response.
	MaxTokens int

	// Temperature controls model output randomness (0.0-1.0).
	Temperature float64

	// MaxHistory is the number of most recent history questions listed in
	// the prompt for de-duplication.
	MaxHistory int

	// Timeout bounds one generation request including retries. Zero means
	// the caller's context alone applies.
	Timeout time.Duration
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&ContextValidator{},
			&DistinctOptionsValidator{},
		},
		MaxTokens:   2000,
		Temperature: 0.7,
		MaxHistory:  12,
		Timeout:     60 * time.Second,
	}
}

// NationalMedian is the default baseline: the national median ACT score
// per subject.
func NationalMedian() map[subject.Subject]int {
	return map[subject.Subject]int{
		subject.English:     21,
		subject.Mathematics: 21,
		subject.Reading:     21,
		subject.Science:     21,
	}
}
