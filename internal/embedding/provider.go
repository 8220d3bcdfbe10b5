// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding maps text to fixed-width vectors under a named model.
// Three backends implement Provider: a builtin feature-hashing model, a
// local Ollama server and a hosted OpenAI-compatible API. A Registry
// resolves configured model ids to providers.
//
// See docs/ARCHITECTURE § EmbeddingProvider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrModelUnavailable means the selected model could not produce a
	// vector: endpoint unreachable, model missing, wrong width or timeout.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrUnknownModel means the model id is not configured.
	ErrUnknownModel = errors.New("unknown embedding model")
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed returns the vector for text. Every vector a provider returns
	// has length Dimensions().
	Embed(ctx context.Context, text string) ([]float64, error)

	// ModelID returns the identifier of the model, used in cache keys.
	ModelID() string

	// Dimensions returns the fixed vector width.
	Dimensions() int
}

// unavailable wraps err as ErrModelUnavailable for the named model.
func unavailable(model string, err error) error {
	return fmt.Errorf("%s: %w: %w", model, ErrModelUnavailable, err)
}

// checkVector verifies width and finiteness of a provider response.
func checkVector(model string, vec []float64, want int) error {
	if len(vec) != want {
		return unavailable(model, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(vec), want))
	}
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return unavailable(model, errors.New("embedding contains non-finite values"))
		}
	}
	return nil
}
