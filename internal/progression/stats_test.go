package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/actprep/internal/events"
	"github.com/abhisek/actprep/internal/subject"
)

func TestStatistics(t *testing.T) {
	evs := []events.Event{
		ev(0, 0, subject.Mathematics, subject.Easy, true),
		ev(1, 1, subject.Mathematics, subject.Easy, false),
		ev(2, 2, subject.Mathematics, subject.Easy, true),
		ev(3, 3, subject.Reading, subject.Hard, true),
	}
	stats := Statistics(evs)

	assert.Len(t, stats, 4)
	assert.Equal(t, 3, stats[subject.Mathematics].Count)
	assert.Equal(t, 2, stats[subject.Mathematics].Correct)
	assert.InDelta(t, 66.666, stats[subject.Mathematics].Accuracy, 0.01)
	assert.Equal(t, 100.0, stats[subject.Reading].Accuracy)
	assert.Equal(t, SubjectStats{}, stats[subject.Science])

	for _, s := range stats {
		assert.GreaterOrEqual(t, s.Accuracy, 0.0)
		assert.LessOrEqual(t, s.Accuracy, 100.0)
	}

	overall := Overall(stats)
	assert.Equal(t, 4, overall.Count)
	assert.Equal(t, 75.0, overall.Accuracy)
}

func TestStrongest(t *testing.T) {
	tests := []struct {
		name  string
		stats map[subject.Subject]SubjectStats
		want  string
	}{
		{
			name:  "no answers",
			stats: Statistics(nil),
			want:  NotAvailable,
		},
		{
			name: "highest accuracy wins",
			stats: map[subject.Subject]SubjectStats{
				subject.Mathematics: {Count: 4, Correct: 1, Accuracy: 25},
				subject.Science:     {Count: 2, Correct: 2, Accuracy: 100},
			},
			want: "Science",
		},
		{
			name: "tie goes to canonical order",
			stats: map[subject.Subject]SubjectStats{
				subject.English: {Count: 2, Correct: 1, Accuracy: 50},
				subject.Reading: {Count: 4, Correct: 2, Accuracy: 50},
			},
			want: "Reading",
		},
		{
			name: "zero accuracy still counts",
			stats: map[subject.Subject]SubjectStats{
				subject.English: {Count: 3},
			},
			want: "English",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StrongestLabel(tt.stats))
		})
	}
}
