package llm

import (
	"context"
	"errors"
)

// Provider abstracts the generative-text backend. Implementations return the
// raw model text for a prompt with no structural guarantees; coercion and
// validation happen downstream.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder provider.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderProvider is a stub implementation until provider wiring is added.
type PlaceholderProvider struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderProvider) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
