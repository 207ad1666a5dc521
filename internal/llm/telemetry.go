package llm

import (
	"context"

	"github.com/abhisek/actprep/internal/telemetry"
)

// TelemetryProvider is a decorator that reports each attempt to a Recorder.
type TelemetryProvider struct {
	inner Provider
	rec   telemetry.Recorder
}

// WithTelemetry wraps a Provider so every Generate call is observed as
// telemetry.OpLLMGenerate.
func WithTelemetry(p Provider, rec telemetry.Recorder) Provider {
	return &TelemetryProvider{inner: p, rec: telemetry.OrNop(rec)}
}

func (t *TelemetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, end := t.rec.Start(ctx, telemetry.OpLLMGenerate)
	resp, err := t.inner.Generate(ctx, req)
	end(err)
	return resp, err
}

func (t *TelemetryProvider) ModelID() string {
	return t.inner.ModelID()
}
