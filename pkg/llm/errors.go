// Error types and handling
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind is the canonical classification of a provider failure. It is the
// basis for all retry and failover decisions.
type ErrorKind string

const (
	KindAuth           ErrorKind = "auth_error"
	KindRateLimited    ErrorKind = "rate_limited"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindUnavailable    ErrorKind = "provider_unavailable"
	KindTimeout        ErrorKind = "timeout"
	KindUnknown        ErrorKind = "unknown"
)

// Retriable reports whether failures of this kind may be retried.
// Auth and invalid-request failures fail fast: retrying a malformed request
// cannot fix it, and retrying a bad credential can mask a misconfiguration.
func (k ErrorKind) Retriable() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// Error represents a standardized, classified provider error
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Provider   string    `json:"provider,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Retriable  bool      `json:"retriable"`
	// Raw preserves the original provider payload for diagnostics
	Raw string `json:"raw,omitempty"`
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError creates an Error with the retriable flag derived from the kind
func NewError(provider string, kind ErrorKind, message string) *Error {
	return &Error{
		Kind:      kind,
		Provider:  provider,
		Message:   message,
		Retriable: kind.Retriable(),
	}
}

// UnknownProviderError indicates that a model identifier does not resolve to
// any registered provider. It is raised before any network call and is never
// retried.
type UnknownProviderError struct {
	Prefix string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q: model identifiers must use the \"provider/model\" form with a registered prefix", e.Prefix)
}

// DuplicateProviderError indicates an attempt to bind an already-registered
// prefix to a different (codec, transport) pair
type DuplicateProviderError struct {
	Prefix string
}

func (e *DuplicateProviderError) Error() string {
	return fmt.Sprintf("provider %q is already registered", e.Prefix)
}

// UnsupportedParameterError indicates that a request carries a parameter the
// target provider's support table rejects. It is raised before any network
// call and is never retried.
type UnsupportedParameterError struct {
	Provider  string
	Parameter Parameter
}

func (e *UnsupportedParameterError) Error() string {
	return fmt.Sprintf("provider %q does not support parameter %q", e.Provider, e.Parameter)
}

// TransportError is a network-level failure raised by a Transport before any
// provider classification has happened. It never escapes to the caller
// directly: the client converts it into an *Error first.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyTransportError converts a raw transport failure into a canonical
// Error. Deadline expiry maps to Timeout, everything else to Unavailable;
// both are retriable. Caller cancellation is handled upstream and never
// reaches this function as a policy input.
func classifyTransportError(provider string, err error) *Error {
	kind := KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	} else {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			kind = KindTimeout
		}
	}
	perr := NewError(provider, kind, err.Error())
	return perr
}
