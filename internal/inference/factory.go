package inference

import (
	"context"
	"fmt"
	"strings"
)

// ClientOptions selects and configures a model provider.
type ClientOptions struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewClient builds the provider named in the options. An empty provider
// defaults to gemini.
func NewClient(ctx context.Context, opts ClientOptions) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		return NewGeminiClient(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAIClient(opts.APIKey, opts.Model, opts.BaseURL), nil
	case "ollama":
		return NewOllamaClient(opts.Model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", opts.Provider)
	}
}
