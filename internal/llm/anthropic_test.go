package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicServer(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(ProviderConfig{APIKey: "test-key", Model: "claude-haiku", BaseURL: srv.URL})
	require.NoError(t, err)
	return p
}

func anthropicMessage(stop string, texts ...string) map[string]any {
	var blocks []map[string]any
	for _, s := range texts {
		blocks = append(blocks, map[string]any{"type": "text", "text": s})
	}
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-haiku-4-5-20251001",
		"content":     blocks,
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 310, "output_tokens": 1200},
	}
}

func TestAnthropicProvider_JoinsTextBlocks(t *testing.T) {
	var body map[string]any
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(t, w, http.StatusOK, anthropicMessage("end_turn", "[", mathQuestion, "]"))
	})
	assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())

	resp, err := p.Generate(context.Background(), questionGenRequest())
	require.NoError(t, err)

	assert.Equal(t, "["+mathQuestion+"]", resp.Text)
	assert.Equal(t, StopEnd, resp.StopReason)
	assert.Equal(t, 1510, resp.Usage.TotalTokens)

	assert.EqualValues(t, 1500, body["max_tokens"])
	system, _ := body["system"].([]any)
	require.Len(t, system, 1)
	assert.NotContains(t, body, "output_config", "free-text requests ask for no format")
}

func TestAnthropicProvider_SchemaQuestion(t *testing.T) {
	var body map[string]any
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(t, w, http.StatusOK, anthropicMessage("end_turn", mathQuestion))
	})

	resp, err := p.Generate(context.Background(), singleQuestionRequest())
	require.NoError(t, err)
	assert.JSONEq(t, mathQuestion, string(resp.Content))
	assert.Contains(t, body, "output_config")
}

func TestAnthropicProvider_NoText(t *testing.T) {
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, anthropicMessage("end_turn"))
	})

	_, err := p.Generate(context.Background(), questionGenRequest())
	var invalid *ErrInvalidResponse
	assert.True(t, errors.As(err, &invalid), "got %v", err)
}

func TestAnthropicProvider_RateLimitCarriesRetryAfter(t *testing.T) {
	calls := 0
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "7")
		writeJSON(t, w, http.StatusTooManyRequests, map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "Rate limit exceeded"},
		})
	})

	_, err := p.Generate(context.Background(), questionGenRequest())
	var rl *ErrRateLimit
	require.True(t, errors.As(err, &rl), "got %T", err)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	assert.Equal(t, 1, calls, "the SDK must not retry on its own")
}

func TestAnthropicProvider_Overloaded(t *testing.T) {
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, 529, map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "overloaded_error", "message": "Overloaded"},
		})
	})

	_, err := p.Generate(context.Background(), questionGenRequest())
	var down *ErrProviderUnavailable
	require.True(t, errors.As(err, &down), "got %T", err)
	assert.Equal(t, 529, down.StatusCode)
	assert.Equal(t, ProviderAnthropic, down.Provider)
}
