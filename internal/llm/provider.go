package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for LLM interaction.
// Consumers call Generate with a Request and receive raw model output.
type Provider interface {
	// Generate sends a prompt to the LLM and returns its output.
	// The request's Schema field, when set, instructs the provider to use
	// its native structured output mechanism. The returned Content is the
	// raw model text; callers that need guaranteed-valid JSON run it
	// through the mcq normalizer, which repairs common failure modes.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. For single-turn generation
	// (the common case in quizforge), this contains one user message.
	Messages []Message

	// Attachment is an optional inline binary part sent alongside the
	// text content, e.g. a PDF or image the questions are drawn from.
	// Not every provider supports every media type; unsupported
	// combinations fail fatally and the caller fails over.
	Attachment *Attachment

	// Schema is the JSON Schema the response should conform to.
	// When set, the provider uses its native structured output mechanism.
	// The response is still treated as untrusted text downstream.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachment is an inline binary content part.
type Attachment struct {
	// MIME is the declared media type, e.g. "application/pdf".
	MIME string

	// Data is the raw attachment bytes.
	Data []byte
}

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (used as schema name for OpenAI,
	// resource URL for validation). Kebab-case, e.g. "mcq-set".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the raw generated output. Supposed to be JSON when a
	// Schema was requested, but truncation and escaping defects are
	// common enough that it must be sanitized before parsing.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
