// Package llm talks to OpenAI-compatible chat completion endpoints.
//
// Each judge is bound by name to one Client. A client without the credentials
// its binding needs reports ErrUnavailable from every call so callers can treat
// it like any other per-call failure.
package llm
