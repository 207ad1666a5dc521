package llm

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsWellFormedQuestion(t *testing.T) {
	assert.NoError(t, Validate(questionSchema, json.RawMessage(mathQuestion)))
}

func TestValidate_NilSchemaAcceptsAnything(t *testing.T) {
	assert.NoError(t, Validate(nil, json.RawMessage("Question 1: not json")))
}

func TestValidate_RejectsMalformedQuestions(t *testing.T) {
	cases := map[string]string{
		"not json":         "Question 1: If 3x + 2 = 11, what is x?",
		"truncated":        mathQuestion[:len(mathQuestion)/2],
		"missing answer":   strings.Replace(mathQuestion, `"correct_option": "B",`, "", 1),
		"answer E":         strings.Replace(mathQuestion, `"correct_option": "B"`, `"correct_option": "E"`, 1),
		"fifth option":     strings.Replace(mathQuestion, `"D": "5"`, `"D": "5", "E": "6"`, 1),
		"empty option":     strings.Replace(mathQuestion, `"C": "4"`, `"C": ""`, 1),
		"unknown category": strings.Replace(mathQuestion, `"Mathematics"`, `"History"`, 1),
		"empty question":   strings.Replace(mathQuestion, `"If 3x + 2 = 11, what is x?"`, `""`, 1),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(questionSchema, json.RawMessage(raw))
			require.Error(t, err)

			var invalid *ErrInvalidResponse
			require.True(t, errors.As(err, &invalid), "got %T", err)
			assert.Equal(t, "act-question", invalid.Schema)
			assert.Equal(t, raw, string(invalid.Content))
			assert.Contains(t, err.Error(), "invalid act-question response")
		})
	}
}

func TestValidate_SchemasWithSameNameCompileSeparately(t *testing.T) {
	loose := &Schema{Name: questionSchema.Name, Definition: map[string]any{"type": "object"}}
	batch := `{"question": "partial"}`

	assert.NoError(t, Validate(loose, json.RawMessage(batch)))
	assert.Error(t, Validate(questionSchema, json.RawMessage(batch)))
	assert.NoError(t, Validate(loose, json.RawMessage(batch)))
}

func TestValidate_BadSchemaDefinition(t *testing.T) {
	broken := &Schema{Name: "broken", Definition: map[string]any{"type": 42}}

	err := Validate(broken, json.RawMessage(mathQuestion))
	var invalid *ErrInvalidResponse
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), `compile schema "broken"`)
}
