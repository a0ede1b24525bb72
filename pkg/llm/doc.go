// Package llm provides a provider-agnostic abstraction for Large Language
// Model chat completions.
//
// The package is built around four small contracts:
//
//   - Codec: translates between the canonical request/response shapes and one
//     provider's wire format, and classifies provider errors
//   - Transport: sends a single wire request (optionally streaming) over the
//     network; any HTTP client satisfying the contract is interchangeable
//   - Registry: maps a provider-qualified model identifier ("openai/gpt-4o")
//     to its registered (Codec, Transport) pair
//   - Client: the public orchestrator; resolves, encodes, sends, decodes and
//     applies retry/failover policy
//
// Provider implementations are located in separate packages under
// /pkg/providers/ to maintain clean separation of concerns and avoid import
// cycles.
package llm
