package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/actprep/internal/subject"
)

// Validator checks a parsed question. Implementations should be stateless
// and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in logs, e.g. "structural".
	Name() string

	// Validate returns nil if q passes.
	Validate(q *Question) *ValidationError
}

// ValidationError describes why a question was discarded.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator checks required text fields and the answer label.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question) *ValidationError {
	if strings.TrimSpace(q.Question) == "" {
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	}
	for _, l := range OptionLabels {
		if strings.TrimSpace(q.Options.Get(l)) == "" {
			return &ValidationError{Validator: v.Name(), Message: "option " + l + " is empty"}
		}
	}
	if q.Options.Get(q.CorrectOption) == "" {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("correct_option %q is not one of A-D", q.CorrectOption)}
	}
	if _, ok := q.Subject(); !ok {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("category %q is not a subject", q.Category)}
	}
	if _, ok := subject.ParseDifficulty(q.Difficulty); !ok {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("difficulty %q is not Easy, Medium or Hard", q.Difficulty)}
	}
	return nil
}

// ContextValidator requires a passage for subjects that need one.
type ContextValidator struct{}

func (v *ContextValidator) Name() string { return "context" }

func (v *ContextValidator) Validate(q *Question) *ValidationError {
	s, ok := q.Subject()
	if ok && s.NeedsContext() && strings.TrimSpace(q.Context) == "" {
		return &ValidationError{Validator: v.Name(), Message: string(s) + " question has no context passage"}
	}
	return nil
}

// DistinctOptionsValidator rejects questions whose options repeat.
type DistinctOptionsValidator struct{}

func (v *DistinctOptionsValidator) Name() string { return "distinct-options" }

func (v *DistinctOptionsValidator) Validate(q *Question) *ValidationError {
	seen := make(map[string]string, len(OptionLabels))
	for _, l := range OptionLabels {
		key := strings.ToLower(strings.TrimSpace(q.Options.Get(l)))
		if prev, dup := seen[key]; dup {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("options %s and %s are identical", prev, l)}
		}
		seen[key] = l
	}
	return nil
}
