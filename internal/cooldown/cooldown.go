// Package cooldown gates how often a learner can request a new batch of
// questions.
package cooldown

import "time"

// DefaultInterval is the minimum time between two generation requests.
const DefaultInterval = 30 * time.Second

// State is the gate state at a point in time.
type State int

const (
	Ready State = iota
	CoolingDown
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case CoolingDown:
		return "cooling_down"
	}
	return "unknown"
}

// Gate is an immutable cooldown state machine. The zero value with a
// positive Interval is Ready. Trigger returns a new Gate rather than
// mutating the receiver; callers sharing a Gate must serialise access.
type Gate struct {
	Interval time.Duration
	last     time.Time
}

// New returns a Ready gate. A non-positive interval never cools down.
func New(interval time.Duration) Gate {
	return Gate{Interval: interval}
}

// State reports whether a trigger at now would be accepted.
func (g Gate) State(now time.Time) State {
	if g.Interval <= 0 || g.last.IsZero() {
		return Ready
	}
	if now.Sub(g.last) < g.Interval {
		return CoolingDown
	}
	return Ready
}

// Remaining is the time left until the gate is Ready again, or 0.
func (g Gate) Remaining(now time.Time) time.Duration {
	if g.State(now) == Ready {
		return 0
	}
	return g.Interval - now.Sub(g.last)
}

// Trigger attempts a transition at now. When the gate is Ready it returns
// a CoolingDown gate and true; otherwise it returns g unchanged and false.
func (g Gate) Trigger(now time.Time) (Gate, bool) {
	if g.State(now) != Ready {
		return g, false
	}
	g.last = now
	return g, true
}

// LastTrigger is the time of the last accepted trigger, or the zero time.
func (g Gate) LastTrigger() time.Time {
	return g.last
}
