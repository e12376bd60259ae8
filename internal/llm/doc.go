// Package llm provides an OpenAI-compatible chat completions client used as
// the text generation backend.
//
// # Configuration
//
// Requires an API key and a model; base URL and timeout are optional. With no
// API key every call fails with errs.ErrBackendUnavailable so callers can fall
// back to placeholder output.
//
// # Retry Behaviour
//
// The client retries HTTP 408 and 5xx responses and network timeouts with
// exponential backoff (base 1s, max 10s, 3 attempts by default). Context
// cancellation aborts retries immediately.
//
// # Error Classes
//
// HTTP 401, 402, 403 and 429 map to errs.ErrBackendUnavailable. Every other
// failure maps to errs.ErrBackend.
package llm
