package llm

import (
	"context"
	"fmt"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

// Provider defines the interface to the external reasoning service.
// The service promises best-effort adherence to the requested output
// schema and nothing more; callers must tolerate malformed responses.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a prompt and returns the raw text response
	Complete(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request contains the input for one reasoning-service call
type Request struct {
	// System is the system prompt framing the task
	System string

	// Prompt is the user prompt: source text plus assertions to check
	Prompt string

	// Model overrides the configured model for this call (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Response contains the service's raw output
type Response struct {
	// Text is the raw response, possibly wrapped in prose or fencing
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds reasoning-service provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "cli"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIKey:    mc.APIKey,
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	}
}

// UpstreamError is a failure reported by the reasoning service itself,
// carrying the upstream status code so operators can tell API failures
// apart from content problems.
type UpstreamError struct {
	Provider string
	Code     int
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error (code %d): %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the upstream failure is transient
func (e *UpstreamError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500 || e.Code == 0
}
