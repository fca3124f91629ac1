// Package embedder defines the optional text embedding boundary.
//
// Retrieval in this pipeline is rule-based; embeddings are stored alongside
// memories as a forward-compatible vector for semantic search, attached
// best-effort when a provider is configured.
package embedder

import "context"

// Provider converts text into vector embeddings.
type Provider interface {
	// Embed converts one text into its embedding vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the vector dimension this provider produces.
	Dimensions() int

	// Close releases provider resources.
	Close() error
}
