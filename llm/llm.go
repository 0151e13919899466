// Package llm provides the language model collaborator.
package llm

import (
	"context"
	"fmt"

	"github.com/m4rc0z/securedoc-project/config"
)

// Client generates a completion for a prompt. Calls are context-bound; the
// caller owns timeouts and cancellation.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options carries provider construction parameters.
type Options struct {
	Model string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewClient constructs the configured LLM provider.
func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Model:         cfg.LLM.Model,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch cfg.LLM.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
