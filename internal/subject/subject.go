// Package subject defines the four ACT sections and the three question
// difficulties, with the aliases accepted for each.
package subject

import (
	"fmt"
	"strings"
)

// Subject is a canonical ACT test section.
type Subject string

const (
	Mathematics Subject = "Mathematics"
	Reading     Subject = "Reading"
	Science     Subject = "Science"
	English     Subject = "English"
)

// All returns the four subjects in canonical order. Ties between subjects
// (e.g. equal accuracy) are always resolved in this order.
func All() []Subject {
	return []Subject{Mathematics, Reading, Science, English}
}

// aliases maps lower-cased spellings to canonical subjects.
var aliases = map[string]Subject{
	"mathematics": Mathematics,
	"math":        Mathematics,
	"maths":       Mathematics,
	"reading":     Reading,
	"science":     Science,
	"english":     English,
}

// Parse resolves s (case-insensitive, surrounding whitespace ignored) to a
// canonical Subject.
func Parse(s string) (Subject, error) {
	if sub, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sub, nil
	}
	return "", fmt.Errorf("unknown subject %q", s)
}

// Valid reports whether s is one of the canonical subjects.
func (s Subject) Valid() bool {
	switch s {
	case Mathematics, Reading, Science, English:
		return true
	}
	return false
}

// NeedsContext reports whether questions for this subject must carry a
// reading passage.
func (s Subject) NeedsContext() bool {
	return s == Reading || s == English
}

// Short returns the compact label used in tables.
func (s Subject) Short() string {
	switch s {
	case Mathematics:
		return "Math"
	case Reading:
		return "Read"
	case Science:
		return "Sci"
	case English:
		return "Eng"
	default:
		return string(s)
	}
}

// Difficulty is the self-reported difficulty of a question.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Difficulties returns all difficulty levels, easiest first.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty resolves s case-insensitively. ok is false when s is not a
// recognised difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, true
	case "medium":
		return Medium, true
	case "hard":
		return Hard, true
	}
	return "", false
}

// Valid reports whether d is a canonical difficulty.
func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}
