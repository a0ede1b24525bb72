// Unified client: resolution, encoding, policy-driven execution
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Client is the unified entry point. One client serves all registered
// providers; it is safe for concurrent use and callers are expected to share
// a single instance.
type Client struct {
	registry *Registry
	policy   PolicyConfig
	logger   zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger; component-tagged sub-loggers are derived
// from it
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "llm").Logger()
	}
}

// WithPolicy sets the retry and fallback policy
func WithPolicy(policy PolicyConfig) Option {
	return func(c *Client) {
		c.policy = policy.withDefaults()
	}
}

// WithRegistry replaces the client's provider registry
func WithRegistry(registry *Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// New creates a client with an empty registry and the default policy
func New(opts ...Option) *Client {
	c := &Client{
		registry: NewRegistry(),
		policy:   DefaultPolicyConfig(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterProvider binds a provider prefix to a codec and transport
func (c *Client) RegisterProvider(prefix string, codec Codec, transport Transport) error {
	return c.registry.Register(prefix, codec, transport)
}

// Registry returns the client's provider registry
func (c *Client) Registry() *Registry {
	return c.registry
}

// candidateModels is the failover order: the requested model first, then the
// configured fallbacks
func (c *Client) candidateModels(primary string) []string {
	models := make([]string, 0, 1+len(c.policy.FallbackModels))
	models = append(models, primary)
	models = append(models, c.policy.FallbackModels...)
	return models
}

// Complete performs a blocking completion, retrying and failing over
// according to the client policy. The returned response is fully canonical;
// its Model field is the bare model name that actually served the request.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	return runPolicy(ctx, c.policy, c.logger, c.candidateModels(req.Model),
		func(ctx context.Context, model string) (*Response, error) {
			return c.completeOnce(ctx, model, req)
		})
}

func (c *Client) completeOnce(ctx context.Context, model string, req Request) (*Response, error) {
	reg, bare, err := c.registry.Resolve(model)
	if err != nil {
		return nil, err
	}

	attempt := req
	attempt.Model = bare
	attempt.Parameters.Stream = false

	attempt, err = applySupport(attempt, reg.Codec, c.logger)
	if err != nil {
		return nil, err
	}

	wire, err := reg.Codec.Encode(attempt)
	if err != nil {
		return nil, NewError(reg.Codec.Provider(), KindInvalidRequest, err.Error())
	}

	wresp, err := reg.Transport.Send(ctx, wire)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var werr *WireError
		if errors.As(err, &werr) {
			return nil, reg.Codec.ClassifyError(*werr)
		}
		return nil, classifyTransportError(reg.Codec.Provider(), err)
	}

	if wresp.StatusCode >= 400 {
		return nil, reg.Codec.ClassifyError(WireError{
			StatusCode: wresp.StatusCode,
			Body:       wresp.Body,
		})
	}

	resp, err := reg.Codec.Decode(wresp)
	if err != nil {
		return nil, NewError(reg.Codec.Provider(), KindUnknown,
			fmt.Sprintf("decoding provider response: %v", err))
	}

	if resp.Model == "" {
		resp.Model = bare
	}
	if resp.Created == 0 {
		resp.Created = time.Now().Unix()
	}
	return resp, nil
}

// Stream performs a streaming completion. The returned channel delivers
// chunks in provider order and is always closed, whether the stream ends
// cleanly, fails, or the context is cancelled. Retries and failover apply
// only until the first chunk has been delivered; after that a failure is
// terminal and surfaces as an error event.
//
// Validation, resolution and parameter-rejection errors of the primary model
// are returned synchronously, before any channel exists.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	reg, _, err := c.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	// warnings for dropped parameters are logged by the attempt itself
	if _, err := applySupport(req, reg.Codec, zerolog.Nop()); err != nil {
		return nil, err
	}

	out := make(chan StreamEvent, 16)
	go c.streamLoop(ctx, req, out)
	return out, nil
}

func (c *Client) streamLoop(ctx context.Context, req Request, out chan<- StreamEvent) {
	defer close(out)

	models := c.candidateModels(req.Model)
	delivered := false
	var lastErr *Error

	for mi, model := range models {
		bo := c.policy.newBackOff()
		hasNext := mi < len(models)-1

		for attempt := 0; ; attempt++ {
			err := c.streamOnce(ctx, model, req, out, &delivered)
			if err == nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if delivered {
				// terminal events are emitted inside streamOnce
				return
			}

			perr, ok := err.(*Error)
			if !ok {
				c.emitEvent(ctx, out, NewErrorEvent(NewError("", KindInvalidRequest, err.Error())))
				return
			}
			lastErr = perr

			if !perr.Retriable {
				c.emitEvent(ctx, out, NewErrorEvent(perr))
				return
			}

			if perr.Kind == KindUnavailable && hasNext {
				c.logger.Warn().
					Str("model", model).
					Str("next", models[mi+1]).
					Msg("provider unavailable, failing over")
				break
			}

			if attempt >= c.policy.MaxRetries {
				if hasNext {
					c.logger.Warn().
						Str("model", model).
						Str("next", models[mi+1]).
						Int("attempts", attempt+1).
						Msg("retries exhausted, failing over")
					break
				}
				c.emitEvent(ctx, out, NewErrorEvent(perr))
				return
			}

			delay := bo.NextBackOff()
			c.logger.Debug().
				Str("model", model).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("retrying stream after backoff")
			if sleepCtx(ctx, delay) != nil {
				return
			}
		}
	}

	if lastErr == nil {
		lastErr = NewError("", KindUnknown, "no models to attempt")
	}
	c.emitEvent(ctx, out, NewErrorEvent(lastErr))
}

// streamOnce runs a single streaming attempt. A nil return means the stream
// finished and all events, including any terminal error after delivery
// started, have been emitted. A non-nil return means the attempt failed
// before delivering anything and the policy loop may retry it.
func (c *Client) streamOnce(ctx context.Context, model string, req Request, out chan<- StreamEvent, delivered *bool) error {
	reg, bare, err := c.registry.Resolve(model)
	if err != nil {
		return err
	}
	provider := reg.Codec.Provider()

	attempt := req
	attempt.Model = bare
	attempt.Parameters.Stream = true

	attempt, err = applySupport(attempt, reg.Codec, c.logger)
	if err != nil {
		return err
	}

	wire, err := reg.Codec.Encode(attempt)
	if err != nil {
		return NewError(provider, KindInvalidRequest, err.Error())
	}

	// an abandoned attempt must release its connection
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := reg.Transport.SendStream(attemptCtx, wire)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var werr *WireError
		if errors.As(err, &werr) {
			return reg.Codec.ClassifyError(*werr)
		}
		return classifyTransportError(provider, err)
	}

	sawTerminal := false

	for event := range events {
		if event.Err != nil {
			var perr *Error
			var werr *WireError
			if errors.As(event.Err, &werr) {
				perr = reg.Codec.ClassifyError(*werr)
			} else {
				perr = classifyTransportError(provider, event.Err)
			}
			if !*delivered {
				return perr
			}
			// mid-stream failure: no retry once delivery has started
			perr.Retriable = false
			c.emitEvent(ctx, out, NewErrorEvent(perr))
			return nil
		}

		chunk, derr := reg.Codec.DecodeStreamChunk(*event.Chunk)
		if derr != nil {
			perr := NewError(provider, KindUnknown,
				fmt.Sprintf("decoding stream chunk: %v", derr))
			if !*delivered {
				return perr
			}
			c.emitEvent(ctx, out, NewErrorEvent(perr))
			return nil
		}
		if chunk == nil {
			continue
		}
		if chunk.Model == "" {
			chunk.Model = bare
		}

		if !c.emitEvent(ctx, out, NewChunkEvent(chunk)) {
			return ctx.Err()
		}
		*delivered = true
		if chunk.IsTerminal() {
			sawTerminal = true
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if sawTerminal {
		return nil
	}
	if *delivered {
		// clean end of stream without an explicit terminator
		c.emitEvent(ctx, out, NewChunkEvent(&StreamChunk{
			Model:        bare,
			FinishReason: FinishReasonStop,
		}))
		return nil
	}
	return NewError(provider, KindUnavailable, "stream ended without any data")
}

// emitEvent sends an event unless the context is done
func (c *Client) emitEvent(ctx context.Context, out chan<- StreamEvent, event StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
