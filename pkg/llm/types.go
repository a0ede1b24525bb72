// Core request and response types
package llm

import "fmt"

// Request represents a chat completion request (provider-agnostic).
// Model is provider-qualified, e.g. "openai/gpt-4o-mini".
type Request struct {
	Model      string         `json:"model"`
	Messages   []Message      `json:"messages"`
	Parameters Parameters     `json:"parameters,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Parameters holds the generation options of a request. Nil pointer fields
// are "not set" and are never encoded onto the wire.
type Parameters struct {
	Temperature      *float32        `json:"temperature,omitempty"`
	TopP             *float32        `json:"top_p,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	N                *int            `json:"n,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	PresencePenalty  *float32        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32        `json:"frequency_penalty,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	User             string          `json:"user,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
}

// Validate checks the request invariants shared by all providers
func (r Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, msg := range r.Messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// FinishReason is the canonical vocabulary for why a choice stopped.
// Provider-specific vocabularies are normalized into this set by each codec;
// values outside a codec's mapping table become FinishReasonUnknown with the
// raw value preserved in the choice metadata under MetadataRawFinishReason.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonError         FinishReason = "error"
	FinishReasonUnknown       FinishReason = "unknown"
)

// MetadataRawFinishReason is the choice metadata key holding the provider's
// original finish-reason string when it could not be normalized.
const MetadataRawFinishReason = "raw_finish_reason"

// Response represents a chat completion response (provider-agnostic)
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Created int64    `json:"created,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a single response choice
type Choice struct {
	Index        int            `json:"index"`
	Message      Message        `json:"message"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns the content of the first choice, or the empty string when the
// response has no choices
func (r Response) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// IsComplete checks if this choice represents a finished response
func (c Choice) IsComplete() bool {
	return c.FinishReason == FinishReasonStop || c.FinishReason == FinishReasonLength
}

// DeepCopy creates a deep copy of the Response, including all choices and
// usage information, so that modifications to the copy will not affect the
// original response.
func (r Response) DeepCopy() Response {
	out := Response{
		ID:      r.ID,
		Model:   r.Model,
		Created: r.Created,
	}
	if r.Usage != nil {
		usage := *r.Usage
		out.Usage = &usage
	}
	if len(r.Choices) > 0 {
		out.Choices = make([]Choice, 0, len(r.Choices))
		for _, choice := range r.Choices {
			copied := Choice{
				Index:        choice.Index,
				Message:      choice.Message.DeepCopy(),
				FinishReason: choice.FinishReason,
			}
			if len(choice.Metadata) > 0 {
				copied.Metadata = make(map[string]any, len(choice.Metadata))
				for k, v := range choice.Metadata {
					copied.Metadata[k] = v
				}
			}
			out.Choices = append(out.Choices, copied)
		}
	}
	return out
}

// ResponseFormat specifies the desired response format for structured outputs
type ResponseFormat struct {
	Type       ResponseFormatType `json:"type"`
	JSONSchema *JSONSchema        `json:"json_schema,omitempty"`
}

// ResponseFormatType defines the type of response format
type ResponseFormatType string

const (
	// ResponseFormatText indicates plain text response (default)
	ResponseFormatText ResponseFormatType = "text"
	// ResponseFormatJSON indicates JSON object response without strict schema
	ResponseFormatJSON ResponseFormatType = "json_object"
	// ResponseFormatJSONSchema indicates JSON response with strict schema validation
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// JSONSchema represents a JSON Schema specification for structured outputs
type JSONSchema struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Schema      interface{} `json:"schema"`
	Strict      *bool       `json:"strict,omitempty"`
}
