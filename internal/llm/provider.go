// Package llm provides the model providers behind model-assisted
// story synthesis. A nil Provider is a valid state: every caller has
// a heuristic path that produces the same manifest shape without one.
package llm

import (
	"context"
	"log"
	"os"
	"strings"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Options selects and tunes the provider used for story synthesis.
// Field names mirror the llm block of the config file.
type Options struct {
	Provider          string // "ollama", "openai", or "none"
	Model             string // ollama model name
	OllamaURL         string
	OpenAIModel       string
	OpenAIBaseURL     string // optional OpenAI-compatible endpoint override
	APIKeyEnv         string
	RequestsPerMinute int
}

// CreateProvider creates an LLM provider based on configuration.
// Ollama falls back to OpenAI when unreachable. A nil return means
// synthesis stays fully heuristic.
func CreateProvider(opts Options) Provider {
	p := selectProvider(opts)
	if p == nil {
		return nil
	}
	return RateLimit(p, opts.RequestsPerMinute)
}

func selectProvider(opts Options) Provider {
	switch strings.ToLower(opts.Provider) {
	case "", "none", "off":
		return nil
	case "ollama":
		p := NewOllamaProvider(opts.Model, opts.OllamaURL)
		if p.IsConfigured() {
			log.Printf("Using Ollama with model: %s", opts.Model)
			return p
		}
		log.Println("Ollama not available, trying OpenAI fallback...")
	case "openai":
		// fall through to the OpenAI path below
	default:
		log.Printf("Unknown LLM provider %q, story synthesis will use heuristics", opts.Provider)
		return nil
	}

	p := NewOpenAIProvider(opts.OpenAIModel, os.Getenv(opts.APIKeyEnv), opts.OpenAIBaseURL)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", opts.OpenAIModel)
		return p
	}

	log.Println("No LLM provider available, story synthesis will use heuristics.")
	return nil
}
