// OpenRouter chat completions codec
package openrouter

import (
	"encoding/json"
	"fmt"
	"net/http"

	openrouter "github.com/revrost/go-openrouter"

	"github.com/modelmux/modelmux/pkg/llm"
)

const (
	// ProviderName is the registry prefix for this codec
	ProviderName = "openrouter"

	// DefaultBaseURL is the public OpenRouter endpoint
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	completionsPath = "/chat/completions"
)

// Codec translates canonical requests to and from the OpenRouter wire
// format. OpenRouter model names contain slashes ("meta-llama/llama-3-8b");
// the registry keeps everything after the first separator, so the full
// upstream name reaches Encode intact.
type Codec struct{}

// NewCodec creates an OpenRouter codec
func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Provider() string {
	return ProviderName
}

var supports = llm.ParameterSupport{
	llm.ParamTemperature:      llm.SupportNative,
	llm.ParamTopP:             llm.SupportNative,
	llm.ParamMaxTokens:        llm.SupportNative,
	llm.ParamStream:           llm.SupportNative,
	llm.ParamN:                llm.SupportDropped,
	llm.ParamStop:             llm.SupportDropped,
	llm.ParamPresencePenalty:  llm.SupportDropped,
	llm.ParamFrequencyPenalty: llm.SupportDropped,
	llm.ParamSeed:             llm.SupportDropped,
	llm.ParamUser:             llm.SupportDropped,
	llm.ParamResponseFormat:   llm.SupportDropped,
}

func (c *Codec) Supports() llm.ParameterSupport {
	return supports
}

var finishReasons = map[string]llm.FinishReason{
	"stop":           llm.FinishReasonStop,
	"length":         llm.FinishReasonLength,
	"content_filter": llm.FinishReasonContentFilter,
	"tool_calls":     llm.FinishReasonToolCalls,
	"error":          llm.FinishReasonError,
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
	messages := make([]openrouter.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openrouter.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: openrouter.Content{Text: msg.Content},
		})
	}

	wireReq := openrouter.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Parameters.Stream,
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

func (c *Codec) Decode(resp *llm.WireResponse) (*llm.Response, error) {
	var wireResp openrouter.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body, &wireResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	out := &llm.Response{
		ID:    wireResp.ID,
		Model: wireResp.Model,
	}
	if wireResp.Usage != nil {
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
				Content: choice.Message.Content.Text,
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

	var wireChunk openrouter.ChatCompletionStreamResponse
	if err := json.Unmarshal(chunk.Data, &wireChunk); err != nil {
		return nil, fmt.Errorf("unmarshaling stream chunk: %w", err)
	}
	var meta struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	}
	_ = json.Unmarshal(chunk.Data, &meta)

	if len(wireChunk.Choices) == 0 {
		return nil, nil
	}

	choice := wireChunk.Choices[0]
	reason, reasonMeta := normalizeFinishReason(string(choice.FinishReason))

	return &llm.StreamChunk{
		ID:           meta.ID,
		Model:        meta.Model,
		Index:        choice.Index,
		Role:         llm.RoleAssistant,
		Delta:        choice.Delta.Content,
		FinishReason: reason,
		Metadata:     reasonMeta,
	}, nil
}

var statusKinds = map[int]llm.ErrorKind{
	http.StatusUnauthorized:    llm.KindAuth,
	http.StatusPaymentRequired: llm.KindAuth,
	http.StatusForbidden:       llm.KindAuth,
	http.StatusTooManyRequests: llm.KindRateLimited,
	http.StatusBadRequest:      llm.KindInvalidRequest,
	http.StatusNotFound:        llm.KindInvalidRequest,
	http.StatusRequestTimeout:  llm.KindTimeout,
}

func (c *Codec) ClassifyError(werr llm.WireError) *llm.Error {
	kind, ok := statusKinds[werr.StatusCode]
	if !ok {
		if werr.StatusCode >= 500 {
			kind = llm.KindUnavailable
		} else {
			kind = llm.KindUnknown
		}
	}

	message := fmt.Sprintf("HTTP %d", werr.StatusCode)
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(werr.Body, &payload); err == nil && payload.Error.Message != "" {
		message = payload.Error.Message
	}

	perr := llm.NewError(ProviderName, kind, message)
	perr.StatusCode = werr.StatusCode
	perr.Raw = string(werr.Body)
	return perr
}

var _ llm.Codec = (*Codec)(nil)
