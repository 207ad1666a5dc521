// Package app wires the store, the normalizer, the reconstructor and the
// question generator into the operations the CLI and the HTTP server expose.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/actprep/internal/cooldown"
	"github.com/abhisek/actprep/internal/events"
	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/proficiency"
	"github.com/abhisek/actprep/internal/progression"
	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/store"
	"github.com/abhisek/actprep/internal/subject"
	"github.com/abhisek/actprep/internal/telemetry"
)

// snapshotKeep is the number of progress snapshots retained.
const snapshotKeep = 5

var (
	// ErrNoGenerator is returned by Generate when no LLM provider is configured.
	ErrNoGenerator = errors.New("question generation is not configured")

	// ErrNoSink is returned by RecordAnswer when the store is read-only.
	ErrNoSink = errors.New("no response store configured")
)

// CoolingDownError rejects a generation request made too soon after the
// previous one.
type CoolingDownError struct {
	Remaining time.Duration
}

func (e *CoolingDownError) Error() string {
	return fmt.Sprintf("question generation is cooling down, retry in %s", e.Remaining.Round(time.Second))
}

// NormalizationCounter receives per-batch normalisation counts.
// telemetry.Metrics implements it.
type NormalizationCounter interface {
	RecordNormalization(accepted, duplicates int, dropped map[string]int)
}

// Deps holds the collaborators of an App. Source is required.
type Deps struct {
	Source    store.BlobSource
	Sink      store.BlobSink
	Snapshots store.SnapshotRepo
	Generator *questiongen.Generator
	Logger    *logger.Logger
	Recorder  telemetry.Recorder
	Counter   NormalizationCounter
}

// Settings holds the tunables of an App.
type Settings struct {
	Params       proficiency.Params
	Seeds        progression.Seeds
	Baseline     map[subject.Subject]int
	FetchLimit   int
	FetchTimeout time.Duration
	Cooldown     time.Duration
}

// DefaultSettings returns the canonical scoring law, the national median
// baseline and no cooldown.
func DefaultSettings() Settings {
	return Settings{
		Params:   proficiency.DefaultParams(),
		Baseline: questiongen.NationalMedian(),
	}
}

// App runs progression and generation requests. Safe for concurrent use.
type App struct {
	deps          Deps
	settings      Settings
	log           *logger.Logger
	rec           telemetry.Recorder
	normalizer    *events.Normalizer
	reconstructor *progression.Reconstructor

	// Now is the clock used for answers and the cooldown gate.
	Now func() time.Time

	mu   sync.Mutex
	gate cooldown.Gate
}

func New(deps Deps, settings Settings) *App {
	log := logger.OrNop(deps.Logger)
	if settings.Baseline == nil {
		settings.Baseline = questiongen.NationalMedian()
	}
	if settings.Params.Multipliers == nil {
		settings.Params = proficiency.DefaultParams()
	}
	return &App{
		deps:          deps,
		settings:      settings,
		log:           log,
		rec:           telemetry.OrNop(deps.Recorder),
		normalizer:    events.NewNormalizer(log),
		reconstructor: progression.NewReconstructor(settings.Params),
		Now:           time.Now,
		gate:          cooldown.New(settings.Cooldown),
	}
}

// Report is the learner's reconstructed progress.
type Report struct {
	Progression progression.Progression
	Summaries   []progression.Summary
	Stats       map[subject.Subject]progression.SubjectStats
	Overall     progression.SubjectStats
	Strongest   string
	ChartRows   []progression.ChartRow
	Events      []events.Event

	Normalization events.Report
	SkippedBlobs  int

	// Degraded is set when the store could not be read; the report then
	// reflects only what was fetched before the failure.
	Degraded bool

	// Previous is the checkpoint saved by the last non-degraded report, nil
	// on the first one.
	Previous *Checkpoint
}

// Checkpoint is the latest score per subject as of an earlier report.
type Checkpoint struct {
	At       time.Time
	Answered int
	Scores   map[subject.Subject]float64
}

// SinceLast returns the score change per subject since Previous, or nil when
// there is no checkpoint. Subjects missing from the checkpoint are omitted.
func (r *Report) SinceLast() map[subject.Subject]float64 {
	if r.Previous == nil {
		return nil
	}
	out := make(map[subject.Subject]float64, len(r.Summaries))
	for _, s := range r.Summaries {
		prev, ok := r.Previous.Scores[s.Subject]
		if !ok {
			continue
		}
		out[s.Subject] = math.Round((s.Latest-prev)*100) / 100
	}
	return out
}

// Progress fetches the response history and reconstructs progression from
// it. A store failure degrades the report instead of failing it.
func (a *App) Progress(ctx context.Context) (*Report, error) {
	blobs, degraded := a.fetch(ctx)

	records, skipped := events.Decode(blobs)

	var (
		evs    []events.Event
		report events.Report
	)
	_ = telemetry.Observe(ctx, a.rec, telemetry.OpNormalize, func(context.Context) error {
		evs, report = a.normalizer.Normalize(records)
		return nil
	})
	if a.deps.Counter != nil {
		a.deps.Counter.RecordNormalization(report.Accepted, report.Duplicates, report.Dropped)
	}

	var prog progression.Progression
	_ = telemetry.Observe(ctx, a.rec, telemetry.OpReconstruct, func(context.Context) error {
		prog = a.reconstructor.Reconstruct(evs, a.settings.Seeds)
		return nil
	})

	stats := progression.Statistics(evs)
	out := &Report{
		Progression:   prog,
		Summaries:     prog.Summaries(),
		Stats:         stats,
		Overall:       progression.Overall(stats),
		Strongest:     progression.StrongestLabel(stats),
		ChartRows:     prog.ChartRows(),
		Events:        evs,
		Normalization: report,
		SkippedBlobs:  skipped,
		Degraded:      degraded,
		Previous:      a.checkpoint(ctx),
	}

	if !degraded {
		a.snapshot(ctx, out)
	}
	return out, nil
}

func (a *App) checkpoint(ctx context.Context) *Checkpoint {
	if a.deps.Snapshots == nil {
		return nil
	}
	snap, err := a.deps.Snapshots.Latest(ctx)
	if err != nil {
		a.log.Warn("failed to read progress snapshot", "error", err)
		return nil
	}
	if snap == nil {
		return nil
	}

	cp := &Checkpoint{
		At:       snap.Timestamp,
		Answered: snap.Data.Answered,
		Scores:   make(map[subject.Subject]float64, len(snap.Data.Scores)),
	}
	for k, v := range snap.Data.Scores {
		if s, err := subject.Parse(k); err == nil {
			cp.Scores[s] = v
		}
	}
	return cp
}

func (a *App) fetch(ctx context.Context) ([]json.RawMessage, bool) {
	if a.deps.Source == nil {
		return nil, false
	}

	var blobs []json.RawMessage
	err := telemetry.Observe(ctx, a.rec, telemetry.OpStoreFetch, func(ctx context.Context) error {
		if a.settings.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.settings.FetchTimeout)
			defer cancel()
		}
		var err error
		blobs, err = a.deps.Source.FetchBlobs(ctx, a.settings.FetchLimit)
		return err
	})
	if err != nil {
		var serr *store.StoreError
		if errors.As(err, &serr) {
			a.log.Warn("response store unavailable, continuing without history", "op", serr.Op, "error", serr.Err)
		} else {
			a.log.Warn("response fetch failed, continuing without history", "error", err)
		}
		return blobs, true
	}
	return blobs, false
}

func (a *App) snapshot(ctx context.Context, r *Report) {
	if a.deps.Snapshots == nil {
		return
	}

	scores := make(map[string]float64, len(r.Summaries))
	for _, s := range r.Summaries {
		scores[string(s.Subject)] = s.Latest
	}
	snap := &store.Snapshot{
		Timestamp: a.Now(),
		Data: store.SnapshotData{
			Version:  1,
			Scores:   scores,
			Answered: len(r.Events),
		},
	}
	if err := a.deps.Snapshots.Save(ctx, snap); err != nil {
		a.log.Warn("failed to save progress snapshot", "error", err)
		return
	}
	if err := a.deps.Snapshots.Prune(ctx, snapshotKeep); err != nil {
		a.log.Warn("failed to prune progress snapshots", "error", err)
	}
}

// Answer is one answered question as submitted by a client.
type Answer struct {
	Subject    string
	Difficulty string
	Correct    bool
	SetNumber  int
}

// RecordAnswer validates a and appends it to the response store.
func (a *App) RecordAnswer(ctx context.Context, ans Answer) (events.Event, error) {
	if a.deps.Sink == nil {
		return events.Event{}, ErrNoSink
	}

	s, err := subject.Parse(ans.Subject)
	if err != nil {
		return events.Event{}, err
	}
	d, ok := subject.ParseDifficulty(ans.Difficulty)
	if !ok {
		d = subject.Medium
	}
	if ans.SetNumber < 0 {
		return events.Event{}, fmt.Errorf("set number must not be negative, got %d", ans.SetNumber)
	}

	ev := events.Event{
		ID:         uuid.NewString(),
		Timestamp:  a.Now().UTC(),
		Subject:    s,
		Difficulty: d,
		Correct:    ans.Correct,
		SetNumber:  ans.SetNumber,
	}
	blob, err := json.Marshal(ev.Record())
	if err != nil {
		return events.Event{}, err
	}

	err = telemetry.Observe(ctx, a.rec, telemetry.OpStoreAppend, func(ctx context.Context) error {
		return a.deps.Sink.AppendBlob(ctx, blob)
	})
	if err != nil {
		return events.Event{}, err
	}
	a.log.Debug("recorded answer", "subject", s, "difficulty", d, "correct", ans.Correct)
	return ev, nil
}

// GenerateRequest carries the scores a batch of questions is targeted at.
type GenerateRequest struct {
	Personal map[subject.Subject]int
	Regional map[subject.Subject]int
	History  []questiongen.Question
}

// Generate requests a batch of questions. Requests inside the cooldown
// interval fail with *CoolingDownError without calling the model. A failed
// generation still returns a Result holding the synthetic error question.
func (a *App) Generate(ctx context.Context, req GenerateRequest) (*questiongen.Result, error) {
	if a.deps.Generator == nil {
		return nil, ErrNoGenerator
	}

	now := a.Now()
	a.mu.Lock()
	next, ok := a.gate.Trigger(now)
	if !ok {
		remaining := a.gate.Remaining(now)
		a.mu.Unlock()
		return nil, &CoolingDownError{Remaining: remaining}
	}
	a.gate = next
	a.mu.Unlock()

	return a.deps.Generator.Generate(ctx, questiongen.Input{
		Personal: req.Personal,
		Regional: req.Regional,
		Baseline: a.settings.Baseline,
		History:  req.History,
	})
}

// CanGenerate reports whether a question generator is configured.
func (a *App) CanGenerate() bool {
	return a.deps.Generator != nil
}

// GateState reports the cooldown state at the current time.
func (a *App) GateState() (cooldown.State, time.Duration) {
	now := a.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gate.State(now), a.gate.Remaining(now)
}
