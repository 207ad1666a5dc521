package questiongen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/actprep/internal/llm"
	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/telemetry"
)

// Purpose is the LLM event purpose label for question generation.
const Purpose = "question-gen"

// errNoQuestions means neither parse path produced a usable question.
var errNoQuestions = errors.New("no usable questions in model response")

// GenerationCounter receives per-request generation counts.
// telemetry.Metrics implements it.
type GenerationCounter interface {
	RecordGeneration(source string, returned, discarded int)
}

// Generator produces ACT practice questions using an LLM provider.
type Generator struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger
	rec      telemetry.Recorder
	counter  GenerationCounter
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for discard and failure warnings.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithRecorder wraps each Generate call in a telemetry operation.
func WithRecorder(r telemetry.Recorder) Option {
	return func(g *Generator) { g.rec = r }
}

// WithCounter reports question counts after each request.
func WithCounter(c GenerationCounter) Option {
	return func(g *Generator) { g.counter = c }
}

// New creates a Generator with the given provider and config.
func New(provider llm.Provider, cfg Config, opts ...Option) *Generator {
	g := &Generator{provider: provider, config: cfg}
	for _, opt := range opts {
		opt(g)
	}
	g.log = logger.OrNop(g.log)
	g.rec = telemetry.OrNop(g.rec)
	return g
}

// Generate requests a batch of questions for input.
//
// The response is parsed strictly first. If that yields nothing, the
// line-oriented fallback parser is tried. If both fail, or the request
// itself fails, the Result holds a single synthetic error question and the
// returned error is a *GenerationError.
func (g *Generator) Generate(ctx context.Context, input Input) (*Result, error) {
	var result *Result
	err := telemetry.Observe(ctx, g.rec, telemetry.OpQuestionsGen, func(ctx context.Context) error {
		var err error
		result, err = g.generate(ctx, input)
		return err
	})

	if g.counter != nil {
		g.counter.RecordGeneration(string(result.Source), len(result.Questions), result.Discarded)
	}
	return result, err
}

func (g *Generator) generate(ctx context.Context, input Input) (*Result, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	if input.Baseline == nil {
		input.Baseline = NationalMedian()
	}

	req := llm.Request{
		Purpose: Purpose,
		System:  systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, g.config)},
		},
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return g.fail(StageRequest, fmt.Errorf("LLM generation failed: %w", err), 0)
	}

	if resp.Truncated() {
		g.log.Warn("model reply hit the token limit", "max_tokens", g.config.MaxTokens)
	}
	text := strings.TrimSpace(resp.Text)

	questions, discarded, perr := parseStrict(stripFences(text), g.config.Validators)
	if len(questions) > 0 {
		if discarded > 0 {
			g.log.Warn("discarded invalid questions", "count", discarded, "kept", len(questions))
		}
		return &Result{Questions: questions, Source: SourceStrict, Discarded: discarded}, nil
	}
	if perr != nil {
		g.log.Debug("strict parse failed, trying fallback", "error", perr)
	}

	salvaged, dropped := parseHeuristic(text)
	discarded += dropped
	if len(salvaged) > 0 {
		g.log.Warn("recovered questions from unstructured response",
			"count", len(salvaged), "discarded", discarded)
		return &Result{Questions: salvaged, Source: SourceHeuristic, Discarded: discarded}, nil
	}

	cause := errNoQuestions
	if perr != nil {
		cause = fmt.Errorf("%w: %v", errNoQuestions, perr)
	}
	return g.fail(StageParse, cause, discarded)
}

func (g *Generator) fail(stage string, err error, discarded int) (*Result, error) {
	g.log.Warn("question generation failed", "stage", stage, "error", err)
	return &Result{
		Questions: []Question{ErrorQuestion(err)},
		Source:    SourceSynthetic,
		Discarded: discarded,
	}, &GenerationError{Stage: stage, Err: err}
}
