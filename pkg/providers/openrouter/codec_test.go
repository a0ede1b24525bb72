package openrouter

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/pkg/llm"
)

func floatPtr(v float32) *float32 { return &v }

func TestEncodeKeepsUpstreamModelName(t *testing.T) {
	codec := NewCodec()

	wire, err := codec.Encode(llm.Request{
		Model:    "meta-llama/llama-3-8b",
		Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hello")},
		Parameters: llm.Parameters{
			Temperature: floatPtr(0.3),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, wire.Method)
	assert.Equal(t, "/chat/completions", wire.Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal(wire.Body, &body))
	assert.Equal(t, "meta-llama/llama-3-8b", body["model"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	first := messages[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hello", first["content"])
}

func TestDecode(t *testing.T) {
	codec := NewCodec()
	body := `{
		"id": "or-1",
		"model": "meta-llama/llama-3-8b",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "hey"},
			"finish_reason": "length"
		}],
		"usage": {"prompt_tokens": 3, "completion_tokens": 8, "total_tokens": 11}
	}`

	resp, err := codec.Decode(&llm.WireResponse{StatusCode: 200, Body: []byte(body)})
	require.NoError(t, err)

	assert.Equal(t, "or-1", resp.ID)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hey", resp.Choices[0].Message.Content)
	assert.Equal(t, llm.FinishReasonLength, resp.Choices[0].FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 11, resp.Usage.TotalTokens)
}

func TestDecodeStreamChunk(t *testing.T) {
	codec := NewCodec()

	chunk, err := codec.DecodeStreamChunk(llm.WireChunk{
		Data: []byte(`{"id":"or-2","model":"m","choices":[{"index":0,"delta":{"content":"to"},"finish_reason":""}]}`),
	})
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, "to", chunk.Delta)
	assert.False(t, chunk.IsTerminal())

	done, err := codec.DecodeStreamChunk(llm.WireChunk{Data: []byte("[DONE]")})
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestClassifyError(t *testing.T) {
	codec := NewCodec()

	perr := codec.ClassifyError(llm.WireError{
		StatusCode: http.StatusTooManyRequests,
		Body:       []byte(`{"error":{"message":"rate limited"}}`),
	})
	assert.Equal(t, llm.KindRateLimited, perr.Kind)
	assert.True(t, perr.Retriable)
	assert.Equal(t, "rate limited", perr.Message)
}
