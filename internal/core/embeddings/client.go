package embeddings

import (
	"github.com/rs/zerolog"
)

// Config holds configuration for selecting an embedding provider.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	RateLimit  int
}

// New returns the OpenAI provider when an API key is configured and the
// deterministic mock otherwise. The mock path keeps local and CI runs
// working without credentials.
func New(cfg Config, logger *zerolog.Logger) Provider {
	if cfg.APIKey != "" {
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			RateLimit:  cfg.RateLimit,
		})
	}

	logger.Warn().Msg("no embedding API key configured, using mock provider")

	return NewMockProvider(cfg.Dimensions)
}
