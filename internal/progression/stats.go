package progression

import (
	"github.com/abhisek/actprep/internal/events"
	"github.com/abhisek/actprep/internal/subject"
)

// NotAvailable is the label used when no strongest subject exists.
const NotAvailable = "N/A"

// SubjectStats counts answers for one subject.
type SubjectStats struct {
	Count   int
	Correct int

	// Accuracy is Correct/Count as a percentage, 0 when Count is 0.
	Accuracy float64
}

// Statistics computes per-subject answer counts. Every subject is present.
func Statistics(evs []events.Event) map[subject.Subject]SubjectStats {
	stats := make(map[subject.Subject]SubjectStats, len(subject.All()))
	for _, sub := range subject.All() {
		stats[sub] = SubjectStats{}
	}

	for _, ev := range evs {
		s, ok := stats[ev.Subject]
		if !ok {
			continue
		}
		s.Count++
		if ev.Correct {
			s.Correct++
		}
		stats[ev.Subject] = s
	}

	for sub, s := range stats {
		if s.Count > 0 {
			s.Accuracy = float64(s.Correct) / float64(s.Count) * 100
		}
		stats[sub] = s
	}
	return stats
}

// Strongest returns the subject with the highest accuracy among subjects that
// have at least one answer. Ties go to the earlier subject in canonical order.
// ok is false when no subject has answers.
func Strongest(stats map[subject.Subject]SubjectStats) (best subject.Subject, ok bool) {
	bestAcc := -1.0
	for _, sub := range subject.All() {
		s := stats[sub]
		if s.Count == 0 {
			continue
		}
		if s.Accuracy > bestAcc {
			best, bestAcc, ok = sub, s.Accuracy, true
		}
	}
	return best, ok
}

// StrongestLabel renders Strongest for display.
func StrongestLabel(stats map[subject.Subject]SubjectStats) string {
	if sub, ok := Strongest(stats); ok {
		return string(sub)
	}
	return NotAvailable
}

// Overall sums the per-subject statistics.
func Overall(stats map[subject.Subject]SubjectStats) SubjectStats {
	var total SubjectStats
	for _, s := range stats {
		total.Count += s.Count
		total.Correct += s.Correct
	}
	if total.Count > 0 {
		total.Accuracy = float64(total.Correct) / float64(total.Count) * 100
	}
	return total
}
