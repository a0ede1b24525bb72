// Parameter support enforcement ahead of encoding
package llm

import "github.com/rs/zerolog"

// setParameters lists the canonical parameters present on a request, in
// declaration order
func setParameters(p Parameters) []Parameter {
	var set []Parameter
	if p.Temperature != nil {
		set = append(set, ParamTemperature)
	}
	if p.TopP != nil {
		set = append(set, ParamTopP)
	}
	if p.MaxTokens != nil {
		set = append(set, ParamMaxTokens)
	}
	if p.N != nil {
		set = append(set, ParamN)
	}
	if len(p.Stop) > 0 {
		set = append(set, ParamStop)
	}
	if p.PresencePenalty != nil {
		set = append(set, ParamPresencePenalty)
	}
	if p.FrequencyPenalty != nil {
		set = append(set, ParamFrequencyPenalty)
	}
	if p.Seed != nil {
		set = append(set, ParamSeed)
	}
	if p.User != "" {
		set = append(set, ParamUser)
	}
	if p.ResponseFormat != nil {
		set = append(set, ParamResponseFormat)
	}
	return set
}

func clearParameter(p *Parameters, param Parameter) {
	switch param {
	case ParamTemperature:
		p.Temperature = nil
	case ParamTopP:
		p.TopP = nil
	case ParamMaxTokens:
		p.MaxTokens = nil
	case ParamN:
		p.N = nil
	case ParamStop:
		p.Stop = nil
	case ParamPresencePenalty:
		p.PresencePenalty = nil
	case ParamFrequencyPenalty:
		p.FrequencyPenalty = nil
	case ParamSeed:
		p.Seed = nil
	case ParamUser:
		p.User = ""
	case ParamResponseFormat:
		p.ResponseFormat = nil
	}
}

// applySupport checks every set parameter of req against the codec's support
// table. Natively supported parameters pass through, dropped parameters are
// removed with a warning, rejected parameters fail the whole request before
// any network call. The input request is not modified.
func applySupport(req Request, codec Codec, logger zerolog.Logger) (Request, error) {
	support := codec.Supports()

	for _, param := range setParameters(req.Parameters) {
		switch support.Level(param) {
		case SupportNative:
			// encoded as-is
		case SupportDropped:
			logger.Warn().
				Str("provider", codec.Provider()).
				Str("parameter", string(param)).
				Msg("parameter not supported by provider, dropping")
			clearParameter(&req.Parameters, param)
		case SupportRejected:
			return Request{}, &UnsupportedParameterError{
				Provider:  codec.Provider(),
				Parameter: param,
			}
		}
	}

	return req, nil
}
