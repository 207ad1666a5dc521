package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiSchema_QuestionShape(t *testing.T) {
	s := geminiSchema(questionSchema.Definition)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Len(t, s.Properties, 7)
	assert.Equal(t, []string{"context", "question", "options", "correct_option", "explanation", "category", "difficulty"},
		s.Required, "[]string literals are read")
	assert.Equal(t, s.Required, s.PropertyOrdering)

	opts := s.Properties["options"]
	assert.Equal(t, genai.TypeObject, opts.Type)
	assert.Equal(t, []string{"A", "B", "C", "D"}, opts.Required, "[]any lists are read")
	require.NotNil(t, opts.Properties["A"].MinLength)
	assert.EqualValues(t, 1, *opts.Properties["A"].MinLength)

	assert.Equal(t, []string{"Easy", "Medium", "Hard"}, s.Properties["difficulty"].Enum)
	assert.Nil(t, s.Properties["context"].MinLength)
}

func TestGeminiSchema_Arrays(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type":     "array",
		"minItems": json.Number("1"),
		"maxItems": 10.0,
		"items":    questionSchema.Definition,
	})

	assert.Equal(t, genai.TypeArray, s.Type)
	require.NotNil(t, s.MinItems)
	require.NotNil(t, s.MaxItems)
	assert.EqualValues(t, 1, *s.MinItems)
	assert.EqualValues(t, 10, *s.MaxItems)
	assert.Equal(t, genai.TypeObject, s.Items.Type)
}

func TestGeminiProvider_Generate(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "[" + mathQuestion + "]"}}},
				"finishReason": "MAX_TOKENS",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 200, "candidatesTokenCount": 1500, "totalTokenCount": 1700},
			"modelVersion":  "gemini-2.0-flash-001",
		})
	}))
	t.Cleanup(srv.Close)

	p, err := NewGeminiProvider(context.Background(), ProviderConfig{APIKey: "g", Model: "gemini-flash", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", p.ModelID())

	resp, err := p.Generate(context.Background(), questionGenRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "gemini-2.0-flash:generateContent"), path)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, resp.Text, "3x + 2 = 11")
	assert.True(t, resp.Truncated())
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, 1700, resp.Usage.TotalTokens)
}

func TestGeminiError(t *testing.T) {
	var rl *ErrRateLimit
	assert.True(t, errors.As(geminiError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}), &rl))

	var down *ErrProviderUnavailable
	require.True(t, errors.As(geminiError(genai.APIError{Code: 503}), &down))
	assert.Equal(t, 503, down.StatusCode)

	require.True(t, errors.As(geminiError(errors.New("dial tcp: refused")), &down))
	assert.Zero(t, down.StatusCode)
	assert.Equal(t, ProviderGemini, down.Provider)
}
