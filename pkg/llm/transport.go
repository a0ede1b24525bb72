// Transport contract and the default HTTP implementation
package llm

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WireEvent is one item on a streaming transport channel: a raw chunk or a
// terminal error
type WireEvent struct {
	Chunk *WireChunk
	Err   error
}

// Transport sends provider wire requests over the network. Implementations
// must be safe for concurrent use. Cancellation of the supplied context must
// abort the in-flight request and close the underlying connection.
//
// Send returns the provider response for any HTTP status; only network-level
// failures are errors (wrapped in *TransportError). SendStream surfaces
// provider HTTP failures as a *WireError and network failures as a
// *TransportError, then closes the channel.
type Transport interface {
	Send(ctx context.Context, req *WireRequest) (*WireResponse, error)
	SendStream(ctx context.Context, req *WireRequest) (<-chan WireEvent, error)
}

const defaultHTTPTimeout = 60 * time.Second

// HTTPTransport is the default Transport: plain JSON-over-HTTP with SSE or
// NDJSON line streaming. It is provider-agnostic; codecs produce the paths
// and bodies, the transport only moves bytes.
type HTTPTransport struct {
	baseURL    string
	apiKey     string
	headers    map[string]string
	httpClient *http.Client
	logger     zerolog.Logger
}

// HTTPTransportOption configures an HTTPTransport
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.httpClient = client
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header sent on every request
func WithHeader(key, value string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.headers[key] = value
	}
}

// WithTransportLogger sets the logger used for wire-level debug logging
func WithTransportLogger(logger zerolog.Logger) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger.With().Str("component", "transport").Logger()
	}
}

// NewHTTPTransport creates a transport rooted at baseURL. An empty apiKey
// sends no Authorization header (local endpoints such as Ollama).
func NewHTTPTransport(baseURL, apiKey string, opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		headers: make(map[string]string),
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) newRequest(ctx context.Context, req *WireRequest) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	for key, value := range t.headers {
		httpReq.Header.Set(key, value)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Set(key, value)
		}
	}

	return httpReq, nil
}

// Send performs a single request/response round trip
func (t *HTTPTransport) Send(ctx context.Context, req *WireRequest) (*WireResponse, error) {
	httpReq, err := t.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}

	t.logger.Debug().Str("path", req.Path).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("wire response")

	return &WireResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// maxStreamLine bounds a single streamed line; some providers emit whole
// base64 payloads on one SSE event
const maxStreamLine = 1024 * 1024

// SendStream performs a streaming request. Chunks are emitted in arrival
// order, one per SSE data event or NDJSON line, with framing stripped.
func (t *HTTPTransport) SendStream(ctx context.Context, req *WireRequest) (<-chan WireEvent, error) {
	httpReq, err := t.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}

	ch := make(chan WireEvent, 16)

	go func() {
		defer close(ch)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.emit(ctx, ch, WireEvent{Err: &WireError{StatusCode: resp.StatusCode, Body: body}})
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, ":") {
				continue // SSE keep-alives and comments
			}
			// SSE frames carry a "data: " prefix; NDJSON lines do not
			line = strings.TrimPrefix(line, "data: ")
			line = strings.TrimPrefix(line, "data:")

			if !t.emit(ctx, ch, WireEvent{Chunk: &WireChunk{Data: []byte(line)}}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			t.emit(ctx, ch, WireEvent{Err: &TransportError{Op: "stream", Err: err}})
		}
	}()

	return ch, nil
}

// emit sends an event unless the context is done; returns false to stop the
// pump
func (t *HTTPTransport) emit(ctx context.Context, ch chan<- WireEvent, event WireEvent) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ Transport = (*HTTPTransport)(nil)
