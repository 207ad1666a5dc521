// Package telemetry records timings, traces and counters for the engine's
// I/O-bound operations. Recorders are passed in explicitly; nothing here keeps
// process-global accumulators.
package telemetry

import "context"

// EndFunc finishes an operation started with Recorder.Start. err is the
// operation's outcome and may be nil.
type EndFunc func(err error)

// Recorder observes named operations.
type Recorder interface {
	Start(ctx context.Context, op string) (context.Context, EndFunc)
}

// Operation names shared by callers.
const (
	OpStoreFetch   = "store.fetch"
	OpStoreAppend  = "store.append"
	OpNormalize    = "events.normalize"
	OpReconstruct  = "progression.reconstruct"
	OpLLMGenerate  = "llm.generate"
	OpQuestionsGen = "questiongen.generate"
)

// Nop returns a Recorder that does nothing.
func Nop() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) Start(ctx context.Context, _ string) (context.Context, EndFunc) {
	return ctx, func(error) {}
}

// OrNop returns r, or a no-op recorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop()
	}
	return r
}

// Multi fans every operation out to all recorders. Nil entries are skipped.
func Multi(recs ...Recorder) Recorder {
	var live []Recorder
	for _, r := range recs {
		if r != nil {
			live = append(live, r)
		}
	}
	return multiRecorder(live)
}

type multiRecorder []Recorder

func (m multiRecorder) Start(ctx context.Context, op string) (context.Context, EndFunc) {
	ends := make([]EndFunc, 0, len(m))
	for _, r := range m {
		var end EndFunc
		ctx, end = r.Start(ctx, op)
		ends = append(ends, end)
	}
	return ctx, func(err error) {
		for i := len(ends) - 1; i >= 0; i-- {
			ends[i](err)
		}
	}
}

// Observe runs fn as operation op on r.
func Observe(ctx context.Context, r Recorder, op string, fn func(ctx context.Context) error) error {
	ctx, end := OrNop(r).Start(ctx, op)
	err := fn(ctx)
	end(err)
	return err
}
