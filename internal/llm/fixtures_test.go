package llm

import (
	"encoding/json"
	"net/http"
	"testing"
)

// questionSchema mirrors the shape the question generator validates
// against.
var questionSchema = &Schema{
	Name:        "act-question",
	Description: "A single ACT-style multiple choice practice question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"context":  map[string]any{"type": "string"},
			"question": map[string]any{"type": "string", "minLength": 1},
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
			"correct_option": map[string]any{"type": "string", "enum": []any{"A", "B", "C", "D"}},
			"explanation":    map[string]any{"type": "string"},
			"category":       map[string]any{"type": "string", "enum": []any{"Mathematics", "Reading", "Science", "English"}},
			"difficulty":     map[string]any{"type": "string", "enum": []any{"Easy", "Medium", "Hard"}},
		},
		"required": []string{"context", "question", "options", "correct_option", "explanation", "category", "difficulty"},
	},
}

const mathQuestion = `{
  "context": "",
  "question": "If 3x + 2 = 11, what is x?",
  "options": {"A": "2", "B": "3", "C": "4", "D": "5"},
  "correct_option": "B",
  "explanation": "Subtract 2 then divide by 3.",
  "category": "Mathematics",
  "difficulty": "Easy"
}`

// questionGenRequest is the shape of a batch generation call.
func questionGenRequest() Request {
	return Request{
		Purpose: "question-gen",
		System:  "You are an expert ACT tutor. Reply with a JSON array of questions.",
		Messages: []Message{{
			Role:    RoleUser,
			Content: "User ACT Results: Mathematics 18, Reading 24\nGenerate 10 questions.",
		}},
		MaxTokens:   1500,
		Temperature: 0.7,
	}
}

// singleQuestionRequest asks for one schema-validated question.
func singleQuestionRequest() Request {
	req := questionGenRequest()
	req.Schema = questionSchema
	return req
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
