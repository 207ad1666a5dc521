// Package llm talks to the hosted language models that write practice
// questions. Every backend implements Provider; retry, telemetry and event
// logging are layered on as decorators by NewProvider.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one request to a model and returns its reply.
type Provider interface {
	// Generate runs req. When req.Schema is set the reply is requested in
	// the backend's structured mode and Response.Content holds the
	// validated JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

// PurposeUnknown labels requests that did not say what they were for.
const PurposeUnknown = "unknown"

// Request is a single-turn (or short multi-turn) model call.
type Request struct {
	// Purpose labels the call in the request log, e.g. "question-gen".
	Purpose string

	System   string
	Messages []Message

	// Schema, when set, asks for a structured reply. Question generation
	// leaves it nil and parses free text itself because the hosted Llama
	// models ignore structured output modes.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

func (r Request) purpose() string {
	if r.Purpose == "" {
		return PurposeUnknown
	}
	return r.Purpose
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema document.
type Schema struct {
	// Name doubles as the structured-output name sent to the backend.
	Name        string
	Description string
	Definition  map[string]any
}

// StopReason says why the model stopped writing.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

// Response is a model reply.
type Response struct {
	// Text is the reply exactly as the model wrote it.
	Text string

	// Content is Text as validated JSON. Only set for schema requests.
	Content json.RawMessage

	Usage      Usage
	Model      string
	StopReason StopReason
}

// Truncated reports whether the reply hit the token limit.
func (r *Response) Truncated() bool {
	return r.StopReason == StopMaxTokens
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func usage(in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

// finish turns raw model text into a Response, validating it when the
// request carried a schema.
func finish(req Request, text, model string, stop StopReason, u Usage) (*Response, error) {
	resp := &Response{Text: text, Usage: u, Model: model, StopReason: stop}
	if req.Schema == nil {
		return resp, nil
	}
	if stop == StopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Content: json.RawMessage(text)}
	}
	if err := Validate(req.Schema, json.RawMessage(text)); err != nil {
		return nil, err
	}
	resp.Content = json.RawMessage(text)
	return resp, nil
}
