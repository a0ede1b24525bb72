// Retry and fallback policy
package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// PolicyConfig controls retries within a model and failover across models
type PolicyConfig struct {
	// MaxRetries is the number of retries after the initial attempt,
	// per model
	MaxRetries int
	// BackoffBase is the delay before the first retry; doubled each retry
	BackoffBase time.Duration
	// BackoffCap bounds the delay between retries
	BackoffCap time.Duration
	// Jitter randomizes each delay to avoid synchronized retry storms
	Jitter bool
	// FallbackModels are tried in order, each with a fresh retry budget,
	// when the preceding model is exhausted
	FallbackModels []string
}

// DefaultPolicyConfig returns the policy used when none is configured
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MaxRetries:  3,
		BackoffBase: 500 * time.Millisecond,
		BackoffCap:  30 * time.Second,
		Jitter:      true,
	}
}

func (c PolicyConfig) withDefaults() PolicyConfig {
	def := DefaultPolicyConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = def.BackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = def.BackoffCap
	}
	return c
}

// newBackOff builds the per-model backoff schedule: exponential from
// BackoffBase, doubling, capped at BackoffCap, never giving up on elapsed
// time (the retry count is bounded separately)
func (c PolicyConfig) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.BackoffBase
	bo.MaxInterval = c.BackoffCap
	bo.Multiplier = 2.0
	bo.MaxElapsedTime = 0
	if c.Jitter {
		bo.RandomizationFactor = 0.5
	} else {
		bo.RandomizationFactor = 0
	}
	bo.Reset()
	return bo
}

// sleepCtx waits for d or until the context is done, whichever comes first
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runPolicy drives fn through the retry and fallback schedule. models is the
// full candidate list, primary first. fn receives the provider-qualified
// model to attempt.
//
// Decisions, in order, when an attempt fails:
//   - errors that are not *Error (caller cancellation, local config errors)
//     surface immediately
//   - non-retriable errors surface immediately, unmodified
//   - provider-unavailable errors fail over to the next model at once when
//     one remains
//   - otherwise retry the same model after a backoff delay, up to MaxRetries
//     retries; exhaustion falls through to the next model
//
// The error returned is the last classified error observed.
func runPolicy[T any](ctx context.Context, cfg PolicyConfig, logger zerolog.Logger, models []string, fn func(context.Context, string) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for mi, model := range models {
		bo := cfg.newBackOff()
		hasNext := mi < len(models)-1

		for attempt := 0; ; attempt++ {
			result, err := fn(ctx, model)
			if err == nil {
				return result, nil
			}

			perr, ok := err.(*Error)
			if !ok {
				return zero, err
			}
			lastErr = perr

			if !perr.Retriable {
				return zero, perr
			}

			if perr.Kind == KindUnavailable && hasNext {
				logger.Warn().
					Str("model", model).
					Str("next", models[mi+1]).
					Str("kind", string(perr.Kind)).
					Msg("provider unavailable, failing over")
				break
			}

			if attempt >= cfg.MaxRetries {
				if hasNext {
					logger.Warn().
						Str("model", model).
						Str("next", models[mi+1]).
						Int("attempts", attempt+1).
						Msg("retries exhausted, failing over")
					break
				}
				return zero, perr
			}

			delay := bo.NextBackOff()
			logger.Debug().
				Str("model", model).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Str("kind", string(perr.Kind)).
				Msg("retrying after backoff")

			if err := sleepCtx(ctx, delay); err != nil {
				return zero, err
			}
		}
	}

	if lastErr == nil {
		lastErr = NewError("", KindUnknown, "no models to attempt")
	}
	return zero, lastErr
}
