// Ollama chat codec. The Ollama API has no published Go wire types worth
// depending on, so the request and response shapes are declared here.
package ollama

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/pkg/llm"
)

const (
	// ProviderName is the registry prefix for this codec
	ProviderName = "ollama"

	// DefaultBaseURL is the local Ollama endpoint
	DefaultBaseURL = "http://localhost:11434"

	chatPath = "/api/chat"
)

// chatRequest is the Ollama /api/chat request body
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatOptions carries the generation options Ollama understands
type chatOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
}

// chatResponse is the non-streaming /api/chat response
type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// streamChunk is one NDJSON line of a streaming /api/chat response
type streamChunk struct {
	Model      string      `json:"model"`
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// Codec translates canonical requests to and from the Ollama chat format
type Codec struct{}

// NewCodec creates an Ollama codec
func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Provider() string {
	return ProviderName
}

// supports: a single local model cannot produce multiple choices, so n is
// rejected rather than silently collapsed to one
var supports = llm.ParameterSupport{
	llm.ParamTemperature:      llm.SupportNative,
	llm.ParamTopP:             llm.SupportNative,
	llm.ParamMaxTokens:        llm.SupportNative,
	llm.ParamStop:             llm.SupportNative,
	llm.ParamStream:           llm.SupportNative,
	llm.ParamSeed:             llm.SupportNative,
	llm.ParamN:                llm.SupportRejected,
	llm.ParamPresencePenalty:  llm.SupportDropped,
	llm.ParamFrequencyPenalty: llm.SupportDropped,
	llm.ParamUser:             llm.SupportDropped,
	llm.ParamResponseFormat:   llm.SupportNative,
}

func (c *Codec) Supports() llm.ParameterSupport {
	return supports
}

var doneReasons = map[string]llm.FinishReason{
	"stop":   llm.FinishReasonStop,
	"length": llm.FinishReasonLength,
	"load":   llm.FinishReasonUnknown,
}

func normalizeDoneReason(raw string) (llm.FinishReason, map[string]any) {
	if raw == "" {
		return llm.FinishReasonStop, nil
	}
	if reason, ok := doneReasons[raw]; ok && reason != llm.FinishReasonUnknown {
		return reason, nil
	}
	return llm.FinishReasonUnknown, map[string]any{llm.MetadataRawFinishReason: raw}
}

func (c *Codec) Encode(req llm.Request) (*llm.WireRequest, error) {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	// Ollama has no structured-output support; ask for it in a system
	// message instead
	if req.Parameters.ResponseFormat != nil {
		messages = addResponseFormatInstructions(messages, req.Parameters.ResponseFormat)
	}

	wireReq := chatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Parameters.Stream,
	}

	params := req.Parameters
	if params.Temperature != nil || params.TopP != nil || params.MaxTokens != nil ||
		len(params.Stop) > 0 || params.Seed != nil {
		wireReq.Options = &chatOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
			Stop:        params.Stop,
			Seed:        params.Seed,
		}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	return &llm.WireRequest{
		Method: http.MethodPost,
		Path:   chatPath,
		Body:   body,
		Stream: req.Parameters.Stream,
	}, nil
}

// addResponseFormatInstructions prepends a system message asking the model to
// emit JSON matching the requested format
func addResponseFormatInstructions(messages []chatMessage, format *llm.ResponseFormat) []chatMessage {
	var instruction string
	switch format.Type {
	case llm.ResponseFormatJSON:
		instruction = "Please respond only with valid JSON. Do not include any text before or after the JSON object."
	case llm.ResponseFormatJSONSchema:
		instruction = "Please respond only with valid JSON. Do not include any text before or after the JSON object."
		if format.JSONSchema != nil && format.JSONSchema.Schema != nil {
			if schemaBytes, err := json.Marshal(format.JSONSchema.Schema); err == nil {
				instruction = fmt.Sprintf("Please respond only with valid JSON that conforms to this schema: %s. Do not include any text before or after the JSON object.", string(schemaBytes))
			}
		}
	default:
		return messages
	}

	system := chatMessage{Role: "system", Content: instruction}
	return append([]chatMessage{system}, messages...)
}

func (c *Codec) Decode(resp *llm.WireResponse) (*llm.Response, error) {
	var wireResp chatResponse
	if err := json.Unmarshal(resp.Body, &wireResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if wireResp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", wireResp.Error)
	}

	reason, meta := normalizeDoneReason(wireResp.DoneReason)

	out := &llm.Response{
		// Ollama responses have no id, synthesize one
		ID:    fmt.Sprintf("ollama-%d", time.Now().UnixNano()),
		Model: wireResp.Model,
		Choices: []llm.Choice{{
			Index: 0,
			Message: llm.Message{
				Role:    llm.MessageRole(wireResp.Message.Role),
				Content: wireResp.Message.Content,
			},
			FinishReason: reason,
			Metadata:     meta,
		}},
	}
	if wireResp.PromptEvalCount > 0 || wireResp.EvalCount > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     wireResp.PromptEvalCount,
			CompletionTokens: wireResp.EvalCount,
			TotalTokens:      wireResp.PromptEvalCount + wireResp.EvalCount,
		}
	}
	return out, nil
}

func (c *Codec) DecodeStreamChunk(chunk llm.WireChunk) (*llm.StreamChunk, error) {
	var wireChunk streamChunk
	if err := json.Unmarshal(chunk.Data, &wireChunk); err != nil {
		return nil, fmt.Errorf("unmarshaling stream chunk: %w", err)
	}
	if wireChunk.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", wireChunk.Error)
	}

	out := &llm.StreamChunk{
		Model: wireChunk.Model,
		Index: 0,
		Role:  llm.MessageRole(wireChunk.Message.Role),
		Delta: wireChunk.Message.Content,
	}
	if wireChunk.Done {
		reason, meta := normalizeDoneReason(wireChunk.DoneReason)
		out.FinishReason = reason
		out.Metadata = meta
	}
	return out, nil
}

func (c *Codec) ClassifyError(werr llm.WireError) *llm.Error {
	var kind llm.ErrorKind
	switch {
	case werr.StatusCode == http.StatusNotFound, werr.StatusCode == http.StatusBadRequest:
		kind = llm.KindInvalidRequest
	case werr.StatusCode == http.StatusTooManyRequests:
		kind = llm.KindRateLimited
	case werr.StatusCode >= 500:
		kind = llm.KindUnavailable
	default:
		kind = llm.KindUnknown
	}

	message := fmt.Sprintf("HTTP %d", werr.StatusCode)
	var payload apiError
	if err := json.Unmarshal(werr.Body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	perr := llm.NewError(ProviderName, kind, message)
	perr.StatusCode = werr.StatusCode
	perr.Raw = string(werr.Body)
	return perr
}

var _ llm.Codec = (*Codec)(nil)
