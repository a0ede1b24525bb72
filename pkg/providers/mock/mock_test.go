package mock

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/pkg/llm"
)

func TestMockProviderEndToEnd(t *testing.T) {
	transport := NewTransport()
	transport.EnqueueJSON(NewResponse("fast-model", "scripted answer"))

	client := llm.New()
	require.NoError(t, client.RegisterProvider(ProviderName, NewCodec(), transport))

	resp, err := client.Complete(context.Background(), llm.Request{
		Model:    "mock/fast-model",
		Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "anything")},
	})

	require.NoError(t, err)
	assert.Equal(t, "scripted answer", resp.Text())
	assert.Equal(t, llm.FinishReasonStop, resp.Choices[0].FinishReason)

	calls := transport.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/complete", calls[0].Path)
}

func TestMockProviderStreaming(t *testing.T) {
	transport := NewTransport()
	transport.EnqueueStream(
		ChunkPayload(llm.StreamChunk{ID: "m-1", Delta: "chunk "}),
		ChunkPayload(llm.StreamChunk{ID: "m-1", Delta: "by chunk"}),
		ChunkPayload(llm.StreamChunk{ID: "m-1", FinishReason: llm.FinishReasonStop}),
	)

	client := llm.New()
	require.NoError(t, client.RegisterProvider(ProviderName, NewCodec(), transport))

	events, err := client.Stream(context.Background(), llm.Request{
		Model:    "mock/fast-model",
		Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "go")},
	})
	require.NoError(t, err)

	resp, err := llm.CollectStream(events)
	require.NoError(t, err)
	assert.Equal(t, "chunk by chunk", resp.Text())
}

func TestMockProviderScriptedFailure(t *testing.T) {
	transport := NewTransport()
	failure := llm.NewError(ProviderName, llm.KindRateLimited, "scripted limit")
	body, err := json.Marshal(failure)
	require.NoError(t, err)
	transport.EnqueueResponse(http.StatusTooManyRequests, body)
	transport.EnqueueJSON(NewResponse("fast-model", "after retry"))

	client := llm.New(llm.WithPolicy(llm.PolicyConfig{MaxRetries: 1, BackoffBase: 1, BackoffCap: 1}))
	require.NoError(t, client.RegisterProvider(ProviderName, NewCodec(), transport))

	resp, err := client.Complete(context.Background(), llm.Request{
		Model:    "mock/fast-model",
		Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
	})

	require.NoError(t, err)
	assert.Equal(t, "after retry", resp.Text())
	assert.Len(t, transport.Calls(), 2)
}

func TestCodecRejectedParameters(t *testing.T) {
	codec := &Codec{Rejected: []llm.Parameter{llm.ParamN}}
	assert.Equal(t, llm.SupportRejected, codec.Supports().Level(llm.ParamN))
	assert.Equal(t, llm.SupportNative, codec.Supports().Level(llm.ParamTemperature))
}
