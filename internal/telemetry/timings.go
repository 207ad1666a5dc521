package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TimingStat summarises the observed durations of one operation.
type TimingStat struct {
	Op     string        `json:"op"`
	Calls  int           `json:"calls"`
	Errors int           `json:"errors"`
	Total  time.Duration `json:"total_ns"`
	Avg    time.Duration `json:"avg_ns"`
	Min    time.Duration `json:"min_ns"`
	Max    time.Duration `json:"max_ns"`
}

// Timings is an in-memory Recorder that keeps call counts and durations per
// operation. Safe for concurrent use.
type Timings struct {
	now func() time.Time

	mu    sync.Mutex
	stats map[string]*TimingStat
}

// NewTimings returns an empty Timings recorder.
func NewTimings() *Timings {
	return &Timings{now: time.Now, stats: make(map[string]*TimingStat)}
}

func (t *Timings) Start(ctx context.Context, op string) (context.Context, EndFunc) {
	start := t.now()
	return ctx, func(err error) {
		t.record(op, t.now().Sub(start), err)
	}
}

func (t *Timings) record(op string, d time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[op]
	if !ok {
		s = &TimingStat{Op: op, Min: d, Max: d}
		t.stats[op] = s
	}
	s.Calls++
	s.Total += d
	s.Min = min(s.Min, d)
	s.Max = max(s.Max, d)
	if err != nil {
		s.Errors++
	}
}

// Stats returns a copy of all stats ordered by operation name.
func (t *Timings) Stats() []TimingStat {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TimingStat, 0, len(t.stats))
	for _, s := range t.stats {
		c := *s
		if c.Calls > 0 {
			c.Avg = c.Total / time.Duration(c.Calls)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}

// Reset clears all recorded stats.
func (t *Timings) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*TimingStat)
}
