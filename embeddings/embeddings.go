// Package embeddings provides the text embedding collaborator.
package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/m4rc0z/securedoc-project/config"
	"github.com/m4rc0z/securedoc-project/models"
)

// Embedder maps texts to fixed-length vectors. Implementations must reject
// blank input and return one vector per input text, each of Dimension()
// length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Options carries provider construction parameters.
type Options struct {
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewEmbedder constructs the configured embedding provider.
func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Model:         cfg.Embeddings.Model,
		Dimension:     cfg.Embeddings.Dimension,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch cfg.Embeddings.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embeddings.Provider)
	}
}

func validateInputs(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts to embed", models.ErrValidation)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text %d is blank", models.ErrValidation, i)
		}
	}
	return nil
}
