package proficiency

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/actprep/internal/subject"
)

func TestStep_CorrectMediumFromSeed(t *testing.T) {
	p := DefaultParams()

	// growth = 1 + |18-13|/175 = 1.028571..., magnitude = growth*0.2*13 = 2.674...
	got := p.Step(13, subject.Medium, true)
	assert.Equal(t, 15.67, got)
}

func TestStep_IncorrectHardDecreases(t *testing.T) {
	p := DefaultParams()

	got := p.Step(13, subject.Hard, false)
	assert.Less(t, got, 13.0)
	assert.Equal(t, 8.99, got)
}

func TestStep_ClampsAtZero(t *testing.T) {
	p := DefaultParams()

	// Far above the anchor the growth factor exceeds 1/0.3, so a wrong Hard
	// answer would overshoot below zero.
	got := p.Step(600, subject.Hard, false)
	assert.Equal(t, 0.0, got)
}

func TestStep_ZeroScoreIsAbsorbing(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1.0, p.GrowthFactor(0))
	assert.Equal(t, 0.0, p.Step(0, subject.Hard, true))
	assert.Equal(t, 0.0, p.Step(0, subject.Easy, false))
}

func TestStep_UnknownDifficultyUsesMedium(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, p.Step(20, subject.Medium, true), p.Step(20, subject.Difficulty("N/A"), true))
}

func TestStep_NeverNegative(t *testing.T) {
	p := DefaultParams()
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		score := r.Float64() * 1000
		d := subject.Difficulties()[r.IntN(3)]
		got := p.Step(score, d, r.IntN(2) == 0)
		require.GreaterOrEqual(t, got, 0.0, "score=%v difficulty=%s", score, d)
	}
}

func TestStep_MonotonicInDifficulty(t *testing.T) {
	p := DefaultParams()
	for score := 1.0; score <= 36; score += 0.5 {
		for _, correct := range []bool{true, false} {
			easy := math.Abs(p.Step(score, subject.Easy, correct) - score)
			medium := math.Abs(p.Step(score, subject.Medium, correct) - score)
			hard := math.Abs(p.Step(score, subject.Hard, correct) - score)
			assert.Greater(t, medium, easy, "score=%v correct=%v", score, correct)
			assert.Greater(t, hard, medium, "score=%v correct=%v", score, correct)
		}
	}
}

func TestStep_RoundsToTwoDecimals(t *testing.T) {
	p := DefaultParams()
	got := p.Step(21.37, subject.Easy, true)
	assert.Equal(t, got, math.Round(got*100)/100)
}

func TestFold(t *testing.T) {
	p := DefaultParams()
	traj := p.Fold(13, []Answer{
		{Difficulty: subject.Medium, Correct: true},
		{Difficulty: subject.Hard, Correct: false},
	})
	require.Len(t, traj, 3)
	assert.Equal(t, 13.0, traj[0])
	assert.Equal(t, 15.67, traj[1])
	assert.Equal(t, p.Step(15.67, subject.Hard, false), traj[2])

	assert.Equal(t, []float64{13}, p.Fold(13, nil))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.Scale = 0
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.Multipliers = map[subject.Difficulty]float64{subject.Easy: 0.1, subject.Medium: 0.2}
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.Multipliers[subject.Easy] = 0.5
	assert.Error(t, p.Validate())
}
