package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/store"
)

// LoggingProvider appends every call, with prompt and reply, to the LLM
// request log that `actprep llm` reads.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *logger.Logger
}

func WithLogging(p Provider, provider string, events store.EventRepo, log *logger.Logger) Provider {
	return &LoggingProvider{inner: p, provider: provider, events: events, log: logger.OrNop(log)}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	ev := l.event(req, resp, err, time.Since(start))

	log := l.log.With("provider", l.provider, "purpose", ev.Purpose, "latency_ms", ev.LatencyMs)
	switch {
	case err != nil:
		log.Warn("llm request failed", "error", err)
	case resp.Truncated():
		log.Warn("llm reply truncated", "max_tokens", req.MaxTokens, "output_tokens", ev.OutputTokens)
	default:
		log.Debug("llm request", "model", ev.Model, "input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens)
	}

	if werr := l.events.AppendLLMRequest(ctx, ev); werr != nil {
		log.Warn("could not record llm request", "error", werr)
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *LoggingProvider) event(req Request, resp *Response, err error, took time.Duration) store.LLMRequestEventData {
	ev := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     req.purpose(),
		LatencyMs:   took.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = resp.Text
	}
	return ev
}

// transcript renders a request as labelled sections for the request log.
func transcript(req Request) string {
	var b strings.Builder
	section := func(label, body string) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", label, body)
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			section("schema: "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
