package agent

import (
	"fmt"

	"quill/config"
)

// Options carries everything a backend needs to open its runtime connection.
type Options struct {
	Backend       string // "anthropic", "openai" or "ollama"
	BaseURL       string
	APIKey        string
	Model         string
	SystemPrompt  string
	Tools         ToolBroker // nil disables tool calling
	MaxIterations int
}

// NewSource creates the event source for the configured backend.
//
// Supported backends:
//   - "anthropic": Anthropic Messages API (requires API key)
//   - "openai":    OpenAI chat completions, also OpenAI-compatible endpoints
//   - "ollama":    local Ollama server (no API key)
func NewSource(opts Options) (Source, error) {
	switch opts.Backend {
	case "anthropic":
		return NewAnthropicSource(opts.BaseURL, opts.APIKey, opts.Model, opts.SystemPrompt, opts.Tools, opts.MaxIterations)
	case "openai":
		return NewOpenAISource(opts.BaseURL, opts.APIKey, opts.Model, opts.SystemPrompt, opts.Tools, opts.MaxIterations)
	case "ollama":
		return NewOllamaSource(opts.BaseURL, opts.Model, opts.SystemPrompt, opts.Tools, opts.MaxIterations)
	default:
		return nil, fmt.Errorf("unknown backend: %s", opts.Backend)
	}
}

// OptionsFromConfig builds backend options from the loaded configuration and
// resolved credentials.
func OptionsFromConfig(cfg *config.Config, apiKey, systemPrompt string, tools ToolBroker) Options {
	return Options{
		Backend:       cfg.Backend,
		BaseURL:       cfg.BaseURL,
		APIKey:        apiKey,
		Model:         cfg.Model,
		SystemPrompt:  systemPrompt,
		Tools:         tools,
		MaxIterations: cfg.MaxToolIterations,
	}
}
