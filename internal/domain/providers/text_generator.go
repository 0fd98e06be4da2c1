package providers

import (
	"context"
	"errors"
)

// Errors returned by text generators are wrapped around one of these so the
// retry policy can branch on them.
var (
	ErrRateLimited           = errors.New("text generation rate limited")
	ErrGenerationUnavailable = errors.New("text generation provider unavailable")
	ErrGenerationRejected    = errors.New("text generation request rejected")
)

// GenerationRequest is one prompt sent to a text generation provider.
type GenerationRequest struct {
	System          string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64

	// SchemaName and Schema request schema-constrained JSON output when set.
	SchemaName string
	Schema     map[string]any
}

// TextGenerator produces text (or JSON text when a schema is given) from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// Name identifies the provider and model for logs and metrics.
	Name() string
}
