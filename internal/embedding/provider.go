// Package embedding provides text-to-vector providers used for indexing
// stored utterances and encoding ad-hoc queries.
package embedding

import (
	"context"
)

// maxInputChars bounds the text sent to the provider; sentence-embedding
// models truncate around this length anyway.
const maxInputChars = 512

// Provider maps text to a fixed-dimensionality vector.
type Provider interface {
	// Embed encodes one text. Empty input is passed through as-is; the
	// result is provider-defined.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimensionality.
	Dimension() int
}

// NoOpProvider returns zero vectors. Useful for tests or when embeddings
// are not needed.
type NoOpProvider struct {
	dimension int
}

// NewNoOpProvider creates a no-op provider.
func NewNoOpProvider(dimension int) *NoOpProvider {
	return &NoOpProvider{dimension: dimension}
}

// Embed returns a zero vector.
func (p *NoOpProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, p.dimension), nil
}

// Dimension returns the embedding dimension.
func (p *NoOpProvider) Dimension() int {
	return p.dimension
}

func truncate(text string) string {
	if len(text) > maxInputChars {
		return text[:maxInputChars]
	}
	return text
}
