// Scripted in-memory provider for tests and local development. The codec
// speaks the canonical types as its own wire format and the transport replays
// whatever was enqueued, so a client wired with this pair exercises the full
// resolution, policy and decoding path without a network.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/modelmux/modelmux/pkg/llm"
)

// ProviderName is the registry prefix for this codec
const ProviderName = "mock"

// Codec is a passthrough codec: the wire format is the canonical JSON
type Codec struct {
	// Rejected lists parameters this codec refuses, for testing the
	// fail-fast path
	Rejected []llm.Parameter
}

// NewCodec creates a mock codec that accepts every parameter
func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Provider() string {
	return ProviderName
}

func (c *Codec) Supports() llm.ParameterSupport {
	support := llm.ParameterSupport{
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
	for _, param := range c.Rejected {
		support[param] = llm.SupportRejected
	}
	return support
}

func (c *Codec) Encode(req llm.Request) (*llm.WireRequest, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return &llm.WireRequest{
		Method: http.MethodPost,
		Path:   "/complete",
		Body:   body,
		Stream: req.Parameters.Stream,
	}, nil
}

func (c *Codec) Decode(resp *llm.WireResponse) (*llm.Response, error) {
	var out llm.Response
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Codec) DecodeStreamChunk(chunk llm.WireChunk) (*llm.StreamChunk, error) {
	if string(chunk.Data) == "[DONE]" {
		return nil, nil
	}
	var out llm.StreamChunk
	if err := json.Unmarshal(chunk.Data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Codec) ClassifyError(werr llm.WireError) *llm.Error {
	var perr llm.Error
	if err := json.Unmarshal(werr.Body, &perr); err == nil && perr.Kind != "" {
		if perr.Provider == "" {
			perr.Provider = ProviderName
		}
		perr.StatusCode = werr.StatusCode
		return &perr
	}

	kind := llm.KindUnknown
	if werr.StatusCode >= 500 {
		kind = llm.KindUnavailable
	}
	out := llm.NewError(ProviderName, kind, fmt.Sprintf("HTTP %d", werr.StatusCode))
	out.StatusCode = werr.StatusCode
	return out
}

// Transport replays scripted responses in FIFO order and records every
// request it receives
type Transport struct {
	mu      sync.Mutex
	sends   []sendScript
	streams []streamScript
	calls   []llm.WireRequest
}

type sendScript struct {
	resp *llm.WireResponse
	err  error
}

type streamScript struct {
	events []llm.WireEvent
	err    error
}

// NewTransport creates an empty scripted transport
func NewTransport() *Transport {
	return &Transport{}
}

// EnqueueResponse scripts the next Send to return the given status and body
func (t *Transport) EnqueueResponse(status int, body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, sendScript{
		resp: &llm.WireResponse{StatusCode: status, Body: body},
	})
}

// EnqueueJSON scripts the next Send to return 200 with v marshaled as JSON
func (t *Transport) EnqueueJSON(v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	t.EnqueueResponse(http.StatusOK, body)
}

// EnqueueError scripts the next Send to fail with a network-level error
func (t *Transport) EnqueueError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, sendScript{err: err})
}

// EnqueueStream scripts the next SendStream to deliver the given payloads,
// one chunk each
func (t *Transport) EnqueueStream(payloads ...[]byte) {
	events := make([]llm.WireEvent, 0, len(payloads))
	for _, payload := range payloads {
		events = append(events, llm.WireEvent{Chunk: &llm.WireChunk{Data: payload}})
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams = append(t.streams, streamScript{events: events})
}

// EnqueueStreamEvents scripts the next SendStream with explicit events,
// allowing mid-stream errors
func (t *Transport) EnqueueStreamEvents(events ...llm.WireEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams = append(t.streams, streamScript{events: events})
}

// EnqueueStreamError scripts the next SendStream to fail on open
func (t *Transport) EnqueueStreamError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams = append(t.streams, streamScript{err: err})
}

// Calls returns a copy of every request received so far
func (t *Transport) Calls() []llm.WireRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]llm.WireRequest, len(t.calls))
	copy(out, t.calls)
	return out
}

func (t *Transport) Send(ctx context.Context, req *llm.WireRequest) (*llm.WireResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.calls = append(t.calls, *req)
	if len(t.sends) == 0 {
		t.mu.Unlock()
		return nil, &llm.TransportError{Op: "send", Err: fmt.Errorf("no scripted response")}
	}
	script := t.sends[0]
	t.sends = t.sends[1:]
	t.mu.Unlock()

	return script.resp, script.err
}

func (t *Transport) SendStream(ctx context.Context, req *llm.WireRequest) (<-chan llm.WireEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.calls = append(t.calls, *req)
	if len(t.streams) == 0 {
		t.mu.Unlock()
		return nil, &llm.TransportError{Op: "stream", Err: fmt.Errorf("no scripted stream")}
	}
	script := t.streams[0]
	t.streams = t.streams[1:]
	t.mu.Unlock()

	if script.err != nil {
		return nil, script.err
	}

	ch := make(chan llm.WireEvent, len(script.events))
	go func() {
		defer close(ch)
		for _, event := range script.events {
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// NewResponse builds a canonical single-choice response, for enqueueing
func NewResponse(model, content string) *llm.Response {
	return &llm.Response{
		ID:      uuid.NewString(),
		Model:   model,
		Created: time.Now().Unix(),
		Choices: []llm.Choice{{
			Index: 0,
			Message: llm.Message{
				Role:    llm.RoleAssistant,
				Content: content,
			},
			FinishReason: llm.FinishReasonStop,
		}},
		Usage: &llm.Usage{PromptTokens: 7, CompletionTokens: 5, TotalTokens: 12},
	}
}

// ChunkPayload marshals a canonical stream chunk for EnqueueStream
func ChunkPayload(chunk llm.StreamChunk) []byte {
	body, err := json.Marshal(chunk)
	if err != nil {
		panic(err)
	}
	return body
}

var (
	_ llm.Codec     = (*Codec)(nil)
	_ llm.Transport = (*Transport)(nil)
)
