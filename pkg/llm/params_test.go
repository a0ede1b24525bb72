package llm

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float32) *float32 { return &v }
func intPtr(v int) *int           { return &v }

func TestApplySupportKeepsNativeParameters(t *testing.T) {
	codec := &stubCodec{
		name: "acme",
		support: ParameterSupport{
			ParamTemperature: SupportNative,
			ParamMaxTokens:   SupportNative,
		},
	}

	req := Request{
		Model:    "chat",
		Messages: []Message{NewMessage(RoleUser, "hi")},
		Parameters: Parameters{
			Temperature: floatPtr(0.2),
			MaxTokens:   intPtr(100),
		},
	}

	out, err := applySupport(req, codec, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, out.Parameters.Temperature)
	assert.Equal(t, float32(0.2), *out.Parameters.Temperature)
	require.NotNil(t, out.Parameters.MaxTokens)
	assert.Equal(t, 100, *out.Parameters.MaxTokens)
}

func TestApplySupportDropsUndeclaredParameters(t *testing.T) {
	codec := &stubCodec{
		name: "acme",
		support: ParameterSupport{
			ParamTemperature: SupportNative,
		},
	}

	req := Request{
		Model:    "chat",
		Messages: []Message{NewMessage(RoleUser, "hi")},
		Parameters: Parameters{
			Temperature: floatPtr(0.2),
			Seed:        intPtr(42),
			User:        "someone",
		},
	}

	out, err := applySupport(req, codec, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, out.Parameters.Seed)
	assert.Empty(t, out.Parameters.User)
	assert.NotNil(t, out.Parameters.Temperature)

	// the caller's request must be untouched
	assert.NotNil(t, req.Parameters.Seed)
	assert.Equal(t, "someone", req.Parameters.User)
}

func TestApplySupportRejectsDeclaredRejections(t *testing.T) {
	codec := &stubCodec{
		name: "acme",
		support: ParameterSupport{
			ParamN: SupportRejected,
		},
	}

	req := Request{
		Model:      "chat",
		Messages:   []Message{NewMessage(RoleUser, "hi")},
		Parameters: Parameters{N: intPtr(3)},
	}

	_, err := applySupport(req, codec, zerolog.Nop())
	var unsupported *UnsupportedParameterError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "acme", unsupported.Provider)
	assert.Equal(t, ParamN, unsupported.Parameter)
}

func TestParameterSupportLevelDefaultsToDropped(t *testing.T) {
	var empty ParameterSupport
	assert.Equal(t, SupportDropped, empty.Level(ParamSeed))

	table := ParameterSupport{ParamTemperature: SupportNative}
	assert.Equal(t, SupportNative, table.Level(ParamTemperature))
	assert.Equal(t, SupportDropped, table.Level(ParamTopP))
}
