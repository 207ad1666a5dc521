package events

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/subject"
)

// timestampLayouts are tried in order when parsing a record timestamp.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// Report summarises a normalisation pass.
type Report struct {
	Accepted         int
	Duplicates       int
	MissingTimestamp int

	// Dropped counts rejected records by reason code.
	Dropped map[string]int
}

// DroppedTotal returns the number of rejected records.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Normalizer validates and canonicalises raw records into Events.
type Normalizer struct {
	// Now supplies the timestamp for records that carry none.
	Now func() time.Time

	Log *logger.Logger
}

// NewNormalizer returns a Normalizer using the wall clock.
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{Now: time.Now, Log: logger.OrNop(log)}
}

// Normalize converts records into Events. Invalid records are dropped and
// counted; they never abort the batch. Duplicate records are collapsed.
// The output preserves arrival order but callers must not rely on it.
func (n *Normalizer) Normalize(records []Record) ([]Event, Report) {
	log := logger.OrNop(n.Log)
	now := n.Now
	if now == nil {
		now = time.Now
	}

	report := Report{Dropped: make(map[string]int)}
	seen := make(map[string]struct{}, len(records))
	out := make([]Event, 0, len(records))

	for i, rec := range records {
		ev, err := parseRecord(rec, now)
		if err != nil {
			report.Dropped[err.Reason]++
			log.Warn("dropping event record", "index", i, "field", err.Field, "reason", err.Reason)
			continue
		}
		ev.Seq = int64(i)

		key := ev.dedupKey()
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		if ev.TimestampDefaulted {
			report.MissingTimestamp++
		}
		out = append(out, ev)
	}

	report.Accepted = len(out)
	if report.MissingTimestamp > 0 {
		log.Warn("event records without timestamp were stamped with the current time",
			"count", report.MissingTimestamp)
	}
	return out, report
}

func parseRecord(rec Record, now func() time.Time) (Event, *ValidationError) {
	var ev Event

	rawSubject, ok := rec["subject"].(string)
	if !ok || strings.TrimSpace(rawSubject) == "" {
		return ev, &ValidationError{Field: "subject", Reason: ReasonMissingSubject}
	}
	sub, err := subject.Parse(rawSubject)
	if err != nil {
		return ev, &ValidationError{Field: "subject", Reason: ReasonUnknownSubject}
	}
	ev.Subject = sub

	correct, ok := rec["correct"]
	if !ok {
		correct, ok = rec["is_correct"]
	}
	b, isBool := correct.(bool)
	if !ok || !isBool {
		return ev, &ValidationError{Field: "correct", Reason: ReasonInvalidCorrect}
	}
	ev.Correct = b

	ev.Difficulty = subject.Medium
	if s, ok := rec["difficulty"].(string); ok {
		if d, ok := subject.ParseDifficulty(s); ok {
			ev.Difficulty = d
		}
	}

	switch ts := rec["timestamp"].(type) {
	case nil:
		ev.Timestamp = now().UTC()
		ev.TimestampDefaulted = true
	case string:
		if strings.TrimSpace(ts) == "" {
			ev.Timestamp = now().UTC()
			ev.TimestampDefaulted = true
			break
		}
		t, ok := parseTimestamp(ts)
		if !ok {
			return ev, &ValidationError{Field: "timestamp", Reason: ReasonInvalidTimestamp}
		}
		ev.Timestamp = t
	default:
		return ev, &ValidationError{Field: "timestamp", Reason: ReasonInvalidTimestamp}
	}

	ev.SetNumber = setNumber(rec["set_number"])

	if id, ok := rec["id"].(string); ok {
		ev.ID = id
	}
	return ev, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// setNumber extracts a positive integer set number, or 0.
func setNumber(v any) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
