package provider

import (
	"context"
	"errors"

	"github.com/mindpath-ai/mindpath/config"
	openai_provider "github.com/mindpath-ai/mindpath/provider/openai"
)

// Provider is the interface the chat pipeline needs from an LLM backend.
type Provider interface {
	ChatCompletion(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// NewProvider creates an LLM client from configuration. Gemini is reachable
// through its OpenAI-compatible endpoint by pointing base_url at it, so a
// single client type covers both.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "", "openai", "gemini":
		return openai_provider.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, errors.New("unsupported LLM provider: " + cfg.Provider)
	}
}
