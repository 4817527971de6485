// Package embeddings turns reel description text into semantic vectors.
//
// Two providers exist: the OpenAI embedding API for real runs and a
// deterministic hash-seeded mock for tests and for local development without
// an API key. Both emit unit-norm float32 vectors of a configured dimension
// so the rest of the system never cares which one produced a row.
package embeddings

import "context"

// ProviderName identifies an embedding provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI ProviderName = "openai"
	ProviderMock   ProviderName = "mock"
)

// DefaultDimensions matches the reels.embedding column width.
const DefaultDimensions = 768

// EmbeddingResult contains the embedding vector and metadata.
type EmbeddingResult struct {
	Vector     []float32
	Dimensions int
	Provider   ProviderName
}

// Provider defines the interface for embedding providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// GetEmbedding generates an embedding for the given text.
	GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error)

	// IsAvailable returns true if the provider is currently usable.
	IsAvailable() bool

	// Dimensions returns the output dimensions of this provider.
	Dimensions() int
}
