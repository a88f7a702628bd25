package mcq

import "github.com/abhisek/quizforge/internal/llm"

// SetSchema defines the JSON schema for a generated question set. It is
// sent to providers as the structured-output contract and used as the
// final gate on each canonical record after normalization.
var SetSchema = &llm.Schema{
	Name:        "mcq-set",
	Description: "A set of multiple-choice questions with four options each",
	Definition: map[string]any{
		"type":  "array",
		"items": recordDefinition,
	},
}

var recordDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question": map[string]any{
			"type":        "string",
			"minLength":   1,
			"description": "The question prompt",
		},
		"options": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"A": map[string]any{"type": "string"},
				"B": map[string]any{"type": "string"},
				"C": map[string]any{"type": "string"},
				"D": map[string]any{"type": "string"},
			},
			"required":             []any{"A", "B", "C", "D"},
			"additionalProperties": false,
			"description":          "The four answer choices keyed A through D",
		},
		"answer": map[string]any{
			"type":        "string",
			"enum":        []any{"A", "B", "C", "D"},
			"description": "The label of the correct option",
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Rationale for the correct answer. Empty when not requested.",
		},
	},
	"required":             []any{"question", "options", "answer"},
	"additionalProperties": false,
}

// recordSchema validates a single canonical record.
var recordSchema = &llm.Schema{
	Name:        "mcq-record",
	Description: "A single multiple-choice question",
	Definition:  recordDefinition,
}
