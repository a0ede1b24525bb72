// Codec contract, parameter support tables and wire-level shapes
package llm

import (
	"fmt"
	"net/http"
)

// WireRequest is a provider-native request ready to be sent by a Transport.
// Path is relative to the transport's base endpoint.
type WireRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
	Stream bool
}

// WireResponse is a provider-native response as received by a Transport.
// Non-2xx responses are returned here as well; classification happens in the
// codec, not in the transport.
type WireResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// WireChunk is one provider-native streaming payload (one SSE data event or
// one NDJSON line, with framing already stripped)
type WireChunk struct {
	Data []byte
}

// WireError is a provider-level HTTP failure awaiting classification.
// It implements error so transports can surface it from streaming opens.
type WireError struct {
	StatusCode int
	Body       []byte
}

func (e *WireError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d", e.StatusCode)
}

// Parameter names a canonical generation option for support-table lookups
type Parameter string

const (
	ParamTemperature      Parameter = "temperature"
	ParamTopP             Parameter = "top_p"
	ParamMaxTokens        Parameter = "max_tokens"
	ParamN                Parameter = "n"
	ParamStop             Parameter = "stop"
	ParamStream           Parameter = "stream"
	ParamPresencePenalty  Parameter = "presence_penalty"
	ParamFrequencyPenalty Parameter = "frequency_penalty"
	ParamSeed             Parameter = "seed"
	ParamUser             Parameter = "user"
	ParamResponseFormat   Parameter = "response_format"
)

// SupportLevel declares how a provider handles a canonical parameter
type SupportLevel int

const (
	// SupportNative: the codec encodes the parameter onto the wire
	SupportNative SupportLevel = iota
	// SupportDropped: the parameter is removed before encoding, with a warning
	SupportDropped
	// SupportRejected: the request fails before any network call
	SupportRejected
)

// ParameterSupport is a provider's declared support table. Every codec must
// publish one; it is the authoritative statement of what survives encoding.
type ParameterSupport map[Parameter]SupportLevel

// Level returns the declared support for p. Parameters absent from the table
// are dropped: a codec never sends what it has not declared.
func (s ParameterSupport) Level(p Parameter) SupportLevel {
	if s == nil {
		return SupportDropped
	}
	level, ok := s[p]
	if !ok {
		return SupportDropped
	}
	return level
}

// Codec translates between the canonical shapes and one provider's wire
// format. Implementations must be stateless and safe for concurrent use:
// encode/decode/classify are pure computation.
type Codec interface {
	// Provider returns the provider name, e.g. "openai"
	Provider() string

	// Supports returns the provider's declared parameter support table
	Supports() ParameterSupport

	// Encode converts a canonical request into the provider wire format.
	// The request's Model field carries the bare model name (prefix already
	// stripped by the registry).
	Encode(req Request) (*WireRequest, error)

	// Decode converts a successful provider response into canonical form
	Decode(resp *WireResponse) (*Response, error)

	// DecodeStreamChunk converts one provider streaming payload into a
	// canonical chunk. A (nil, nil) return means the payload carries nothing
	// deliverable (keep-alives, stream terminators) and is skipped.
	DecodeStreamChunk(chunk WireChunk) (*StreamChunk, error)

	// ClassifyError maps a provider HTTP failure onto the canonical error
	// taxonomy. The mapping table behind it is authoritative per provider
	// and is the basis for retry decisions downstream.
	ClassifyError(werr WireError) *Error
}
