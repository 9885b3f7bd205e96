// internal/llm/client.go
//
// Package llm abstracts the text-generation backend behind a single
// capability: accept a request, return generated text or a typed failure.
// The batch engine depends only on this interface; no backend-specific type
// leaks out of the adapters.

package llm

import (
	"context"
	"fmt"

	"flowscribe/internal/config"
)

// Request is a provider-agnostic generation request.
type Request struct {
	Model   string
	System  string
	User    string
	Options config.SamplingOptions
}

// Result carries the generated text.
type Result struct {
	Content string
}

// Client is implemented by each backend adapter. Generate is synchronous from
// the caller's perspective; it must not block unrelated concurrent calls.
type Client interface {
	// Name identifies the backend for logging.
	Name() string

	// Generate sends one non-streaming request. Failures are either a
	// *CommunicationError (transport problem, plausibly transient) or a
	// *ProtocolError (reachable backend, unexpected response shape).
	Generate(ctx context.Context, req Request) (Result, error)
}

// New builds the adapter selected by the configuration. An unknown backend
// never reaches here: config validation rejects it first.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		return NewOllama(cfg.Host), nil
	case config.BackendOpenAI:
		return NewOpenAI(cfg.Host, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("llm: unknown backend %q", cfg.Backend)
	}
}
