// Package proficiency implements the per-subject scoring law: how a single
// answered question moves a learner's proficiency score.
package proficiency

import (
	"errors"
	"fmt"
	"math"

	"github.com/abhisek/actprep/internal/subject"
)

const (
	// DefaultAnchor is the score around which steps are smallest. It sits at
	// the regional mean of the ACT scale.
	DefaultAnchor = 18.0

	// DefaultScale normalises the distance from the anchor.
	DefaultScale = 175.0

	// DefaultSeed is the starting score for a subject with no explicit seed.
	DefaultSeed = 13.0
)

// Params configures the scoring law. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	Anchor float64
	Scale  float64
	Seed   float64

	// Multipliers weights the step size by question difficulty.
	Multipliers map[subject.Difficulty]float64
}

// DefaultParams returns the canonical scoring parameters.
func DefaultParams() Params {
	return Params{
		Anchor: DefaultAnchor,
		Scale:  DefaultScale,
		Seed:   DefaultSeed,
		Multipliers: map[subject.Difficulty]float64{
			subject.Easy:   0.1,
			subject.Medium: 0.2,
			subject.Hard:   0.3,
		},
	}
}

// Validate checks that the parameters define a total step function.
func (p Params) Validate() error {
	if p.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", p.Scale)
	}
	if p.Seed < 0 {
		return fmt.Errorf("seed must not be negative, got %v", p.Seed)
	}
	for _, d := range subject.Difficulties() {
		m, ok := p.Multipliers[d]
		if !ok {
			return fmt.Errorf("missing multiplier for %s", d)
		}
		if m < 0 {
			return fmt.Errorf("multiplier for %s must not be negative, got %v", d, m)
		}
	}
	if p.Multipliers[subject.Easy] > p.Multipliers[subject.Medium] ||
		p.Multipliers[subject.Medium] > p.Multipliers[subject.Hard] {
		return errors.New("multipliers must not decrease with difficulty")
	}
	return nil
}

// Multiplier returns the weight for d. Unknown difficulties weigh as Medium.
func (p Params) Multiplier(d subject.Difficulty) float64 {
	if m, ok := p.Multipliers[d]; ok {
		return m
	}
	return p.Multipliers[subject.Medium]
}

// GrowthFactor grows linearly with the distance between current and the
// anchor. It is 1 for non-positive scores.
func (p Params) GrowthFactor(current float64) float64 {
	if current <= 0 || p.Scale <= 0 {
		return 1
	}
	return 1 + math.Abs(p.Anchor-current)/p.Scale
}

// Step returns the score after answering one question of the given difficulty.
// The result is rounded to two decimals and never negative.
func (p Params) Step(current float64, difficulty subject.Difficulty, correct bool) float64 {
	magnitude := p.GrowthFactor(current) * p.Multiplier(difficulty) * current

	next := current - magnitude
	if correct {
		next = current + magnitude
	}
	return clampScore(round2(next))
}

// Answer is the part of an event the model consumes.
type Answer struct {
	Difficulty subject.Difficulty
	Correct    bool
}

// Fold applies Step to each answer in order. The returned trajectory has
// len(answers)+1 entries; index 0 is seed.
func (p Params) Fold(seed float64, answers []Answer) []float64 {
	out := make([]float64, 0, len(answers)+1)
	score := clampScore(seed)
	out = append(out, score)
	for _, a := range answers {
		score = p.Step(score, a.Difficulty, a.Correct)
		out = append(out, score)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampScore(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
