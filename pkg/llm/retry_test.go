package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() PolicyConfig {
	return PolicyConfig{
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		BackoffCap:  2 * time.Millisecond,
	}
}

func TestRunPolicySuccessFirstAttempt(t *testing.T) {
	calls := 0
	result, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRunPolicyRetriesThenSucceeds(t *testing.T) {
	calls := 0
	result, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			if calls < 3 {
				return "", NewError("acme", KindRateLimited, "slow down")
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestRunPolicyExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "", NewError("acme", KindRateLimited, "slow down")
		})

	require.Error(t, err)
	// initial attempt plus MaxRetries retries
	assert.Equal(t, 3, calls)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindRateLimited, perr.Kind)
}

func TestRunPolicyFailsFastOnAuthError(t *testing.T) {
	calls := 0
	original := NewError("acme", KindAuth, "bad key")
	_, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "", original
		})

	assert.Equal(t, 1, calls)
	// the original error must surface unchanged
	assert.Same(t, original, err)
}

func TestRunPolicyFailsFastOnInvalidRequest(t *testing.T) {
	calls := 0
	_, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "", NewError("acme", KindInvalidRequest, "bad temperature")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunPolicyFallbackAfterExhaustion(t *testing.T) {
	attempts := map[string]int{}
	result, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(),
		[]string{"acme/primary", "acme/backup", "acme/last"},
		func(ctx context.Context, model string) (string, error) {
			attempts[model]++
			if model == "acme/backup" {
				return "served-by-backup", nil
			}
			return "", NewError("acme", KindRateLimited, "slow down")
		})

	require.NoError(t, err)
	assert.Equal(t, "served-by-backup", result)
	// primary got its full budget, backup succeeded on first try,
	// last was never attempted
	assert.Equal(t, 3, attempts["acme/primary"])
	assert.Equal(t, 1, attempts["acme/backup"])
	assert.Equal(t, 0, attempts["acme/last"])
}

func TestRunPolicyUnavailableFailsOverImmediately(t *testing.T) {
	attempts := map[string]int{}
	result, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(),
		[]string{"acme/primary", "acme/backup"},
		func(ctx context.Context, model string) (string, error) {
			attempts[model]++
			if model == "acme/primary" {
				return "", NewError("acme", KindUnavailable, "down")
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts["acme/primary"])
}

func TestRunPolicyUnavailableRetriesWhenNoFallback(t *testing.T) {
	calls := 0
	_, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/only"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "", NewError("acme", KindUnavailable, "down")
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunPolicyCancellationDuringBackoff(t *testing.T) {
	cfg := fastPolicy()
	cfg.BackoffBase = time.Second
	cfg.BackoffCap = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := runPolicy(ctx, cfg, zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "", NewError("acme", KindRateLimited, "slow down")
		})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, calls)
}

func TestRunPolicySurfacesNonPolicyErrors(t *testing.T) {
	sentinel := errors.New("local failure")
	calls := 0
	_, err := runPolicy(context.Background(), fastPolicy(), zerolog.Nop(), []string{"acme/chat"},
		func(ctx context.Context, model string) (string, error) {
			calls++
			return "", sentinel
		})

	assert.Same(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffScheduleDoublesAndCaps(t *testing.T) {
	cfg := PolicyConfig{
		MaxRetries:  5,
		BackoffBase: 100 * time.Millisecond,
		BackoffCap:  400 * time.Millisecond,
		Jitter:      false,
	}

	bo := cfg.newBackOff()
	delays := []time.Duration{
		bo.NextBackOff(),
		bo.NextBackOff(),
		bo.NextBackOff(),
		bo.NextBackOff(),
	}

	assert.Equal(t, 100*time.Millisecond, delays[0])
	assert.Equal(t, 200*time.Millisecond, delays[1])
	assert.Equal(t, 400*time.Millisecond, delays[2])
	assert.Equal(t, 400*time.Millisecond, delays[3])
}

func TestPolicyConfigDefaults(t *testing.T) {
	cfg := PolicyConfig{}.withDefaults()
	def := DefaultPolicyConfig()

	assert.Equal(t, def.BackoffBase, cfg.BackoffBase)
	assert.Equal(t, def.BackoffCap, cfg.BackoffCap)
	assert.Equal(t, 0, cfg.MaxRetries)
}
