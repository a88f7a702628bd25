package quizgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/quizforge/internal/mcq"
)

const generateSystemPrompt = `You are an assessment author creating multiple-choice questions from source material.

Rules:
- Every question must be answerable from the provided material alone.
- Each question has exactly 4 options labeled A, B, C, and D, with exactly one correct option.
- Distractors should reflect plausible misunderstandings of the material, not random values.
- Respect the requested count per difficulty tier. "easy" tests recall, "medium" tests comprehension, "hard" tests application or analysis.
- Respond with a JSON array only. Each element is an object with fields "question", "options" (an object with keys "A", "B", "C", "D"), "answer" (the correct label), and "explanation".
- If explanations are not requested, set "explanation" to an empty string.
- Do not wrap the array in Markdown fences or any surrounding prose.`

const solveSystemPrompt = `You are an expert exam solver. You are given multiple-choice questions and must determine the correct answer for each.

Rules:
- Solve every question in the input, in order.
- Respond with a JSON array only. Each element is an object with fields "question" (the original question text), "options" (an object with keys "A", "B", "C", "D" holding the original choices), "answer" (the label of the correct option), and "explanation".
- If explanations are not requested, set "explanation" to an empty string.
- Do not wrap the array in Markdown fences or any surrounding prose.`

// buildGenerateMessage constructs the user message for one batch.
func buildGenerateMessage(material string, batch mcq.TierCounts, explain bool) string {
	var b strings.Builder

	b.WriteString("Generate the following questions:\n")
	for _, tier := range mcq.Difficulties() {
		if n := batch.Get(tier); n > 0 {
			fmt.Fprintf(&b, "- %d %s question(s)\n", n, tier)
		}
	}
	fmt.Fprintf(&b, "Include explanations: %t\n", explain)

	if material != "" {
		b.WriteString("\nSource material:\n")
		b.WriteString(material)
	}
	return b.String()
}

// buildSolveMessage constructs the user message for a solving request.
func buildSolveMessage(text string, explain bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Include explanations: %t\n", explain)
	if text != "" {
		b.WriteString("\nQuestions:\n")
		b.WriteString(text)
	}
	return b.String()
}
