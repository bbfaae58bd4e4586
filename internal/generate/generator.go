// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate wraps the text-generation service used to phrase
// fact-check verdicts and literature summaries.
package generate

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("generator returned no text")

// Options tunes a single generation call.
type Options struct {
	// Temperature is the sampling temperature. Zero uses the service default.
	Temperature float64

	// SystemInstruction is sent as the system prompt when non-empty.
	SystemInstruction string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
