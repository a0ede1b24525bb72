// OpenAI chat completions codec
package openai

import (
	"encoding/json"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelmux/modelmux/pkg/llm"
)

const (
	// ProviderName is the registry prefix for this codec
	ProviderName = "openai"

	// DefaultBaseURL is the public OpenAI endpoint
	DefaultBaseURL = "https://api.openai.com/v1"

	completionsPath = "/chat/completions"
)

// Codec translates canonical requests to and from the OpenAI chat
// completions wire format. It is stateless.
type Codec struct{}

// NewCodec creates an OpenAI codec
func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Provider() string {
	return ProviderName
}

// supports declares native handling for the full canonical parameter set
var supports = llm.ParameterSupport{
	llm.ParamTemperature:      llm.SupportNative,
	llm.ParamTopP:             llm.SupportNative,
	llm.ParamMaxTokens:        llm.SupportNative,
	llm.ParamN:                llm.SupportNative,
	llm.ParamStop:             llm.SupportNative,
	llm.ParamStream:           llm.SupportNative,
	llm.ParamPresencePenalty:  llm.SupportNative,
	llm.ParamFrequencyPenalty: llm.SupportNative,
	llm.ParamSeed:             llm.SupportNative,
	llm.ParamUser:             llm.SupportNative,
	llm.ParamResponseFormat:   llm.SupportNative,
}

func (c *Codec) Supports() llm.ParameterSupport {
	return supports
}

// finishReasons maps the provider vocabulary onto the canonical one
var finishReasons = map[string]llm.FinishReason{
	"stop":           llm.FinishReasonStop,
	"length":         llm.FinishReasonLength,
	"content_filter": llm.FinishReasonContentFilter,
	"tool_calls":     llm.FinishReasonToolCalls,
	"function_call":  llm.FinishReasonToolCalls,
}

func normalizeFinishReason(raw string) (llm.FinishReason, map[string]any) {
	if raw == "" {
		return "", nil
	}
	if reason, ok := finishReasons[raw]; ok {
		return reason, nil
	}
	return llm.FinishReasonUnknown, map[string]any{llm.MetadataRawFinishReason: raw}
}

func (c *Codec) Encode(req llm.Request) (*llm.WireRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Name:    msg.Name,
		})
	}

	wireReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Parameters.Stream,
		Stop:     req.Parameters.Stop,
		User:     req.Parameters.User,
		Seed:     req.Parameters.Seed,
	}
	if req.Parameters.Temperature != nil {
		wireReq.Temperature = *req.Parameters.Temperature
	}
	if req.Parameters.TopP != nil {
		wireReq.TopP = *req.Parameters.TopP
	}
	if req.Parameters.MaxTokens != nil {
		wireReq.MaxTokens = *req.Parameters.MaxTokens
	}
	if req.Parameters.N != nil {
		wireReq.N = *req.Parameters.N
	}
	if req.Parameters.PresencePenalty != nil {
		wireReq.PresencePenalty = *req.Parameters.PresencePenalty
	}
	if req.Parameters.FrequencyPenalty != nil {
		wireReq.FrequencyPenalty = *req.Parameters.FrequencyPenalty
	}

	if req.Parameters.ResponseFormat != nil {
		format, err := encodeResponseFormat(req.Parameters.ResponseFormat)
		if err != nil {
			return nil, err
		}
		wireReq.ResponseFormat = format
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	return &llm.WireRequest{
		Method: http.MethodPost,
		Path:   completionsPath,
		Body:   body,
		Stream: req.Parameters.Stream,
	}, nil
}

func encodeResponseFormat(format *llm.ResponseFormat) (*openai.ChatCompletionResponseFormat, error) {
	switch format.Type {
	case llm.ResponseFormatText:
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeText,
		}, nil
	case llm.ResponseFormatJSON:
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}, nil
	case llm.ResponseFormatJSONSchema:
		if format.JSONSchema == nil {
			return nil, fmt.Errorf("response format %q requires a schema", format.Type)
		}
		schemaBytes, err := json.Marshal(format.JSONSchema.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON schema: %w", err)
		}
		strict := false
		if format.JSONSchema.Strict != nil {
			strict = *format.JSONSchema.Strict
		}
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        format.JSONSchema.Name,
				Description: format.JSONSchema.Description,
				Schema:      json.RawMessage(schemaBytes),
				Strict:      strict,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported response format type %q", format.Type)
	}
}

func (c *Codec) Decode(resp *llm.WireResponse) (*llm.Response, error) {
	var wireResp openai.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body, &wireResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	out := &llm.Response{
		ID:      wireResp.ID,
		Model:   wireResp.Model,
		Created: wireResp.Created,
	}
	if wireResp.Usage.TotalTokens > 0 || wireResp.Usage.PromptTokens > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     wireResp.Usage.PromptTokens,
			CompletionTokens: wireResp.Usage.CompletionTokens,
			TotalTokens:      wireResp.Usage.TotalTokens,
		}
	}

	for _, choice := range wireResp.Choices {
		reason, meta := normalizeFinishReason(string(choice.FinishReason))
		out.Choices = append(out.Choices, llm.Choice{
			Index: choice.Index,
			Message: llm.Message{
				Role:    llm.MessageRole(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: reason,
			Metadata:     meta,
		})
	}

	return out, nil
}

func (c *Codec) DecodeStreamChunk(chunk llm.WireChunk) (*llm.StreamChunk, error) {
	data := string(chunk.Data)
	if data == "[DONE]" {
		return nil, nil
	}

	var wireChunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(chunk.Data, &wireChunk); err != nil {
		return nil, fmt.Errorf("unmarshaling stream chunk: %w", err)
	}
	if len(wireChunk.Choices) == 0 {
		return nil, nil
	}

	choice := wireChunk.Choices[0]
	reason, meta := normalizeFinishReason(string(choice.FinishReason))

	return &llm.StreamChunk{
		ID:           wireChunk.ID,
		Model:        wireChunk.Model,
		Index:        choice.Index,
		Role:         llm.MessageRole(choice.Delta.Role),
		Delta:        choice.Delta.Content,
		FinishReason: reason,
		Metadata:     meta,
	}, nil
}

// statusKinds is the authoritative HTTP status classification for this
// provider
var statusKinds = map[int]llm.ErrorKind{
	http.StatusUnauthorized:        llm.KindAuth,
	http.StatusForbidden:           llm.KindAuth,
	http.StatusTooManyRequests:     llm.KindRateLimited,
	http.StatusBadRequest:          llm.KindInvalidRequest,
	http.StatusNotFound:            llm.KindInvalidRequest,
	http.StatusUnprocessableEntity: llm.KindInvalidRequest,
	http.StatusRequestTimeout:      llm.KindTimeout,
	http.StatusInternalServerError: llm.KindUnavailable,
	http.StatusBadGateway:          llm.KindUnavailable,
	http.StatusServiceUnavailable:  llm.KindUnavailable,
	http.StatusGatewayTimeout:      llm.KindUnavailable,
}

func classifyStatus(status int) llm.ErrorKind {
	if kind, ok := statusKinds[status]; ok {
		return kind
	}
	if status >= 500 {
		return llm.KindUnavailable
	}
	return llm.KindUnknown
}

func (c *Codec) ClassifyError(werr llm.WireError) *llm.Error {
	kind := classifyStatus(werr.StatusCode)

	message := fmt.Sprintf("HTTP %d", werr.StatusCode)
	var payload struct {
		Error *openai.APIError `json:"error"`
	}
	if err := json.Unmarshal(werr.Body, &payload); err == nil && payload.Error != nil && payload.Error.Message != "" {
		message = payload.Error.Message
	}

	perr := llm.NewError(ProviderName, kind, message)
	perr.StatusCode = werr.StatusCode
	perr.Raw = string(werr.Body)
	return perr
}

var _ llm.Codec = (*Codec)(nil)
