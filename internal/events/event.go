package events

import (
	"fmt"
	"time"

	"github.com/abhisek/actprep/internal/subject"
)

// TimestampLayout is the layout used when writing event timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is an untyped event record as it arrives from a store.
type Record map[string]any

// Event is one answered question after normalisation.
type Event struct {
	// ID is the store-assigned identifier, empty for legacy records.
	ID string

	// Seq is the arrival index within the batch that produced this event.
	// It breaks timestamp ties deterministically.
	Seq int64

	Timestamp  time.Time
	Subject    subject.Subject
	Difficulty subject.Difficulty
	Correct    bool

	// SetNumber groups events generated together. 0 means absent.
	SetNumber int

	// TimestampDefaulted is set when the record carried no timestamp and
	// the normalizer substituted the current time.
	TimestampDefaulted bool
}

// Record converts e back into its canonical wire form.
func (e Event) Record() Record {
	r := Record{
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"subject":    string(e.Subject),
		"difficulty": string(e.Difficulty),
		"correct":    e.Correct,
	}
	if e.ID != "" {
		r["id"] = e.ID
	}
	if e.SetNumber > 0 {
		r["set_number"] = e.SetNumber
	}
	return r
}

// dedupKey identifies an event for de-duplication.
func (e Event) dedupKey() string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return fmt.Sprintf("%d|%s|%s|%t|%d",
		e.Timestamp.UnixNano(), e.Subject, e.Difficulty, e.Correct, e.SetNumber)
}

// ValidationError describes why a record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event %s: %s", e.Field, e.Reason)
}

// Reason codes used in Report.Dropped.
const (
	ReasonMissingSubject   = "missing-subject"
	ReasonUnknownSubject   = "unknown-subject"
	ReasonInvalidCorrect   = "invalid-correct"
	ReasonInvalidTimestamp = "invalid-timestamp"
)
