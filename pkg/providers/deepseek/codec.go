// DeepSeek chat completions codec
package deepseek

import (
	"encoding/json"
	"fmt"
	"net/http"

	deepseek "github.com/cohesion-org/deepseek-go"

	"github.com/modelmux/modelmux/pkg/llm"
)

const (
	// ProviderName is the registry prefix for this codec
	ProviderName = "deepseek"

	// DefaultBaseURL is the public DeepSeek endpoint
	DefaultBaseURL = "https://api.deepseek.com"

	completionsPath = "/chat/completions"
)

// Codec translates canonical requests to and from the DeepSeek wire format
type Codec struct{}

// NewCodec creates a DeepSeek codec
func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Provider() string {
	return ProviderName
}

// supports: the API accepts a narrower surface than OpenAI; everything it
// does not understand is dropped before encoding
var supports = llm.ParameterSupport{
	llm.ParamTemperature:      llm.SupportNative,
	llm.ParamTopP:             llm.SupportNative,
	llm.ParamMaxTokens:        llm.SupportNative,
	llm.ParamStop:             llm.SupportDropped,
	llm.ParamStream:           llm.SupportNative,
	llm.ParamN:                llm.SupportDropped,
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

func encodeMessages(msgs []llm.Message) []deepseek.ChatCompletionMessage {
	messages := make([]deepseek.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, deepseek.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return messages
}

func (c *Codec) Encode(req llm.Request) (*llm.WireRequest, error) {
	var body []byte
	var err error

	if req.Parameters.Stream {
		wireReq := deepseek.StreamChatCompletionRequest{
			Model:    req.Model,
			Messages: encodeMessages(req.Messages),
			Stream:   true,
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
		body, err = json.Marshal(wireReq)
	} else {
		wireReq := deepseek.ChatCompletionRequest{
			Model:    req.Model,
			Messages: encodeMessages(req.Messages),
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
		body, err = json.Marshal(wireReq)
	}
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
	var wireResp deepseek.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body, &wireResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	out := &llm.Response{
		ID:    wireResp.ID,
		Model: wireResp.Model,
	}
	if wireResp.Usage.TotalTokens > 0 || wireResp.Usage.PromptTokens > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     wireResp.Usage.PromptTokens,
			CompletionTokens: wireResp.Usage.CompletionTokens,
			TotalTokens:      wireResp.Usage.TotalTokens,
		}
	}

	for _, choice := range wireResp.Choices {
		reason, meta := normalizeFinishReason(choice.FinishReason)
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

	var wireChunk deepseek.StreamChatCompletionResponse
	if err := json.Unmarshal(chunk.Data, &wireChunk); err != nil {
		return nil, fmt.Errorf("unmarshaling stream chunk: %w", err)
	}
	// the SDK stream type does not surface id/model, read them directly
	var meta struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	}
	_ = json.Unmarshal(chunk.Data, &meta)

	if len(wireChunk.Choices) == 0 {
		return nil, nil
	}

	choice := wireChunk.Choices[0]
	reason, reasonMeta := normalizeFinishReason(choice.FinishReason)

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
	http.StatusForbidden:       llm.KindAuth,
	http.StatusPaymentRequired: llm.KindAuth,
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
