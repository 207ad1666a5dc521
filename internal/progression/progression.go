package progression

import (
	"sort"
	"time"

	"github.com/abhisek/actprep/internal/events"
	"github.com/abhisek/actprep/internal/proficiency"
	"github.com/abhisek/actprep/internal/subject"
)

// Seeds holds the starting score for each subject.
type Seeds map[subject.Subject]float64

// Trajectory is a subject's score history. Index 0 is the seed; index i is
// the score after the i-th chronologically processed event.
type Trajectory []float64

// Latest returns the most recent score.
func (t Trajectory) Latest() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1]
}

// Delta returns the change from the seed to the latest score.
func (t Trajectory) Delta() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1] - t[0]
}

// Point is one step of a trajectory annotated with the event that produced it.
type Point struct {
	Index      int
	Timestamp  time.Time
	Difficulty subject.Difficulty
	Correct    bool
	Score      float64
}

// Progression is the reconstructed history for every subject.
type Progression struct {
	Trajectories map[subject.Subject]Trajectory

	// Points mirrors Trajectories without the seed entry.
	Points map[subject.Subject][]Point
}

// Reconstructor replays events through the proficiency model.
type Reconstructor struct {
	Params proficiency.Params
}

// NewReconstructor returns a Reconstructor using params.
func NewReconstructor(params proficiency.Params) *Reconstructor {
	return &Reconstructor{Params: params}
}

// Reconstruct partitions events by subject, orders each partition by
// timestamp (ties by arrival sequence) and folds it through the model. Every
// subject appears in the result; subjects without events have a seed-only
// trajectory. The input slice is not modified.
func (r *Reconstructor) Reconstruct(evs []events.Event, seeds Seeds) Progression {
	parts := Partition(evs)

	prog := Progression{
		Trajectories: make(map[subject.Subject]Trajectory, len(subject.All())),
		Points:       make(map[subject.Subject][]Point, len(subject.All())),
	}
	for _, sub := range subject.All() {
		seed, ok := seeds[sub]
		if !ok {
			seed = r.Params.Seed
		}

		part := parts[sub]
		answers := make([]proficiency.Answer, len(part))
		for i, ev := range part {
			answers[i] = proficiency.Answer{Difficulty: ev.Difficulty, Correct: ev.Correct}
		}
		traj := Trajectory(r.Params.Fold(seed, answers))

		points := make([]Point, len(part))
		for i, ev := range part {
			points[i] = Point{
				Index:      i + 1,
				Timestamp:  ev.Timestamp,
				Difficulty: ev.Difficulty,
				Correct:    ev.Correct,
				Score:      traj[i+1],
			}
		}

		prog.Trajectories[sub] = traj
		prog.Points[sub] = points
	}
	return prog
}

// Partition groups events by subject, each group in chronological order.
// Events with a non-canonical subject are ignored.
func Partition(evs []events.Event) map[subject.Subject][]events.Event {
	parts := make(map[subject.Subject][]events.Event)
	for _, ev := range evs {
		if !ev.Subject.Valid() {
			continue
		}
		parts[ev.Subject] = append(parts[ev.Subject], ev)
	}
	for _, part := range parts {
		sort.SliceStable(part, func(i, j int) bool {
			if !part[i].Timestamp.Equal(part[j].Timestamp) {
				return part[i].Timestamp.Before(part[j].Timestamp)
			}
			return part[i].Seq < part[j].Seq
		})
	}
	return parts
}

// Summary is the per-subject headline shown next to the progression chart.
type Summary struct {
	Subject  subject.Subject
	Latest   float64
	Delta    float64
	Answered int
}

// Summaries returns one Summary per subject in canonical order.
func (p Progression) Summaries() []Summary {
	out := make([]Summary, 0, len(subject.All()))
	for _, sub := range subject.All() {
		traj := p.Trajectories[sub]
		out = append(out, Summary{
			Subject:  sub,
			Latest:   traj.Latest(),
			Delta:    traj.Delta(),
			Answered: max(len(traj)-1, 0),
		})
	}
	return out
}

// ChartRow is one x-axis position of the progression chart. Scores holds the
// score each subject had after its Step-th event; subjects with fewer events
// are absent from later rows.
type ChartRow struct {
	Step   int
	Scores map[subject.Subject]float64
}

// ChartRows pivots trajectories by step number. Row 0 holds the seeds.
func (p Progression) ChartRows() []ChartRow {
	longest := 0
	for _, traj := range p.Trajectories {
		longest = max(longest, len(traj))
	}

	rows := make([]ChartRow, longest)
	for i := range rows {
		rows[i] = ChartRow{Step: i, Scores: make(map[subject.Subject]float64)}
		for sub, traj := range p.Trajectories {
			if i < len(traj) {
				rows[i].Scores[sub] = traj[i]
			}
		}
	}
	return rows
}
