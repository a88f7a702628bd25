package mcq

import (
	"fmt"

	"github.com/abhisek/quizforge/internal/llm"
)

// MaxItems bounds the total question count of a single generation request.
const MaxItems = 1000

// OptionLabel identifies one of the four answer slots.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// Labels returns the four option labels in order.
func Labels() [4]OptionLabel {
	return [4]OptionLabel{OptionA, OptionB, OptionC, OptionD}
}

// ValidLabel reports whether l is one of the four option labels.
func ValidLabel(l OptionLabel) bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Options holds the four answer choices. All slots are always present
// after normalization, possibly as empty strings.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the option text for a label.
func (o Options) Get(l OptionLabel) string {
	switch l {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	}
	return ""
}

// MCQ is the canonical multiple-choice question record all downstream
// consumers rely on.
type MCQ struct {
	// Question is the question prompt text.
	Question string `json:"question"`

	// Options are the four choices keyed A through D.
	Options Options `json:"options"`

	// Answer is the label of the correct option. Always one of A-D;
	// defaults to A when the model output left it unrecoverable.
	Answer OptionLabel `json:"answer"`

	// Explanation is an optional rationale for the correct answer.
	Explanation string `json:"explanation,omitempty"`
}

// Difficulty is a generation difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties returns the tiers in batch-fill priority order.
func Difficulties() [3]Difficulty {
	return [3]Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// TierCounts holds the requested question count per difficulty tier.
type TierCounts struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Get returns the count for a tier.
func (c TierCounts) Get(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return c.Easy
	case DifficultyMedium:
		return c.Medium
	case DifficultyHard:
		return c.Hard
	}
	return 0
}

// Add increments the count for a tier.
func (c *TierCounts) Add(d Difficulty, n int) {
	switch d {
	case DifficultyEasy:
		c.Easy += n
	case DifficultyMedium:
		c.Medium += n
	case DifficultyHard:
		c.Hard += n
	}
}

// Total returns the summed count across tiers.
func (c TierCounts) Total() int {
	return c.Easy + c.Medium + c.Hard
}

// GenerationRequest asks for a question set drawn from source material.
type GenerationRequest struct {
	// Text is the source material. Empty when an attachment carries it.
	Text string

	// Attachment is opaque binary source material with a declared media
	// type. Presentation documents are text-extracted before the
	// provider call; other supported types pass through natively.
	Attachment *llm.Attachment

	// Counts is the per-tier question budget.
	Counts TierCounts

	// Explain requests a rationale with every question.
	Explain bool
}

// Validate checks the request invariants.
func (r GenerationRequest) Validate() error {
	if r.Text == "" && r.Attachment == nil {
		return fmt.Errorf("source material is required")
	}
	if r.Counts.Easy < 0 || r.Counts.Medium < 0 || r.Counts.Hard < 0 {
		return fmt.Errorf("tier counts must be non-negative")
	}
	total := r.Counts.Total()
	if total == 0 {
		return fmt.Errorf("at least one tier count must be positive")
	}
	if total > MaxItems {
		return fmt.Errorf("total question count %d exceeds limit of %d", total, MaxItems)
	}
	return nil
}

// SolvingRequest asks for answers to existing questions. The item count
// is implicit in the input.
type SolvingRequest struct {
	// Text is the raw question text. Empty when an attachment carries it.
	Text string

	// Attachment is an opaque binary question document.
	Attachment *llm.Attachment

	// Explain requests a rationale with every answer.
	Explain bool
}

// Validate checks the request invariants.
func (r SolvingRequest) Validate() error {
	if r.Text == "" && r.Attachment == nil {
		return fmt.Errorf("question input is required")
	}
	return nil
}
