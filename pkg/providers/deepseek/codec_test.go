package deepseek

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/pkg/llm"
)

func floatPtr(v float32) *float32 { return &v }
func intPtr(v int) *int           { return &v }

func TestEncode(t *testing.T) {
	codec := NewCodec()

	wire, err := codec.Encode(llm.Request{
		Model:    "deepseek-chat",
		Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hello")},
		Parameters: llm.Parameters{
			Temperature: floatPtr(0.5),
			MaxTokens:   intPtr(128),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, wire.Method)
	assert.Equal(t, "/chat/completions", wire.Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal(wire.Body, &body))
	assert.Equal(t, "deepseek-chat", body["model"])
	assert.InDelta(t, 0.5, body["temperature"], 0.001)
	assert.EqualValues(t, 128, body["max_tokens"])
}

func TestEncodeStreamSetsStreamField(t *testing.T) {
	codec := NewCodec()

	wire, err := codec.Encode(llm.Request{
		Model:      "deepseek-chat",
		Messages:   []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
		Parameters: llm.Parameters{Stream: true},
	})
	require.NoError(t, err)
	assert.True(t, wire.Stream)

	var body map[string]any
	require.NoError(t, json.Unmarshal(wire.Body, &body))
	assert.Equal(t, true, body["stream"])
}

func TestDecode(t *testing.T) {
	codec := NewCodec()
	body := `{
		"id": "ds-1",
		"model": "deepseek-chat",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "hello back"},
			"finish_reason": "stop"
		}],
		"usage": {"prompt_tokens": 4, "completion_tokens": 2, "total_tokens": 6}
	}`

	resp, err := codec.Decode(&llm.WireResponse{StatusCode: 200, Body: []byte(body)})
	require.NoError(t, err)

	assert.Equal(t, "ds-1", resp.ID)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello back", resp.Choices[0].Message.Content)
	assert.Equal(t, llm.FinishReasonStop, resp.Choices[0].FinishReason)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

func TestDecodeWithoutUsage(t *testing.T) {
	codec := NewCodec()
	body := `{
		"id": "ds-3",
		"model": "deepseek-chat",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "hi"},
			"finish_reason": "stop"
		}]
	}`

	resp, err := codec.Decode(&llm.WireResponse{StatusCode: 200, Body: []byte(body)})
	require.NoError(t, err)
	assert.Nil(t, resp.Usage)
}

func TestDecodeStreamChunk(t *testing.T) {
	codec := NewCodec()

	chunk, err := codec.DecodeStreamChunk(llm.WireChunk{
		Data: []byte(`{"id":"ds-2","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":"par"}}]}`),
	})
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, "ds-2", chunk.ID)
	assert.Equal(t, "deepseek-chat", chunk.Model)
	assert.Equal(t, "par", chunk.Delta)

	done, err := codec.DecodeStreamChunk(llm.WireChunk{Data: []byte("[DONE]")})
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestSupportsDropsNonNativeParameters(t *testing.T) {
	support := NewCodec().Supports()
	assert.Equal(t, llm.SupportNative, support.Level(llm.ParamTemperature))
	assert.Equal(t, llm.SupportNative, support.Level(llm.ParamMaxTokens))
	assert.Equal(t, llm.SupportDropped, support.Level(llm.ParamSeed))
	assert.Equal(t, llm.SupportDropped, support.Level(llm.ParamN))
	assert.Equal(t, llm.SupportDropped, support.Level(llm.ParamResponseFormat))
}

func TestClassifyError(t *testing.T) {
	codec := NewCodec()

	perr := codec.ClassifyError(llm.WireError{
		StatusCode: http.StatusPaymentRequired,
		Body:       []byte(`{"error":{"message":"Insufficient Balance"}}`),
	})
	assert.Equal(t, llm.KindAuth, perr.Kind)
	assert.Equal(t, "Insufficient Balance", perr.Message)

	perr = codec.ClassifyError(llm.WireError{StatusCode: http.StatusBadGateway})
	assert.Equal(t, llm.KindUnavailable, perr.Kind)
	assert.True(t, perr.Retriable)
}
