package llm

import (
	"context"

	"github.com/ppiankov/vocabdeck/internal/util"
)

// Provider defines the interface for annotation service backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the raw text reply
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one service call
type CompletionRequest struct {
	// Prompt is the user prompt
	Prompt string

	// System is an optional system instruction
	System string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// JSON asks the backend for a JSON-only reply where supported
	JSON bool
}

// CompletionResponse contains the service reply
type CompletionResponse struct {
	// Text is the reply text, untrimmed of any markdown fences
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "google", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, test servers)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "google",
		Model:       "gemini-2.5-flash",
		Timeout:     60,
		MaxTokens:   8192,
		Temperature: 0.3,
	}
}

func (c Config) proxy() util.ProxyConfig {
	return util.ProxyConfig{HTTPProxy: c.HTTPProxy, HTTPSProxy: c.HTTPSProxy, NoProxy: c.NoProxy}
}

const defaultSystem = "You are a language-learning expert who writes concise, accurate flashcard content."

func (c Config) model(req CompletionRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}

func systemPrompt(req CompletionRequest) string {
	if req.System != "" {
		return req.System
	}
	return defaultSystem
}
