package questiongen

import "github.com/abhisek/actprep/internal/llm"

// QuestionSchema is the JSON schema every strictly parsed question must
// satisfy. Category and difficulty are canonicalised before validation.
var QuestionSchema = &llm.Schema{
	Name:        "act-question",
	Description: "A single ACT-style multiple choice practice question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"context": map[string]any{
				"type":        "string",
				"description": "Passage, equation, data or background needed to answer",
			},
			"question": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"A": map[string]any{"type": "string", "minLength": 1},
					"B": map[string]any{"type": "string", "minLength": 1},
					"C": map[string]any{"type": "string", "minLength": 1},
					"D": map[string]any{"type": "string", "minLength": 1},
				},
				"required":             []any{"A", "B", "C", "D"},
				"additionalProperties": false,
			},
			"correct_option": map[string]any{
				"type": "string",
				"enum": []any{"A", "B", "C", "D"},
			},
			"explanation": map[string]any{
				"type": "string",
			},
			"category": map[string]any{
				"type": "string",
				"enum": []any{"Mathematics", "Reading", "Science", "English"},
			},
			"difficulty": map[string]any{
				"type": "string",
				"enum": []any{"Easy", "Medium", "Hard"},
			},
		},
		"required": []any{"context", "question", "options", "correct_option", "explanation", "category", "difficulty"},
	},
}
