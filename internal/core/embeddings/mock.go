package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// LCG constants for deterministic pseudo-random generation, standard
// PCG/LCG multiplier and increment values.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	lcgSeedShift  = 33
	lcgFloatScale = 0x40000000
)

// MockProvider implements the embedding Provider interface for tests and
// local runs without an API key. The same text always yields the same
// unit-norm vector, so reruns over the same reels are reproducible.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock provider with the given output dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	return &MockProvider{dimensions: dimensions}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() ProviderName {
	return ProviderMock
}

// Dimensions returns the output dimensions.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable returns true, the mock is always available.
func (p *MockProvider) IsAvailable() bool {
	return true
}

// GetEmbedding generates a deterministic embedding from the text hash. The
// FNV-64a digest seeds an LCG that fills the vector with values in [-1, 1),
// which is then normalized to unit length.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>lcgSeedShift)-lcgFloatScale) / float32(lcgFloatScale)
	}

	normalizeVector(vec)

	return EmbeddingResult{
		Vector:     vec,
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
	}, nil
}

// normalizeVector scales a vector to unit length in place. The zero vector
// is left untouched.
func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
