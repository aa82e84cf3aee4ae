package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"emotion-diary/internal/config"
)

// Proveedores soportados en LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const defaultOpenAIModel = "gpt-4o-mini"

// NewClient construye el LLMClient configurado.
func NewClient(ctx context.Context, cfg *config.AnalysisConfig, logger *zap.Logger) (LLMClient, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case ProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for openai")
		}
		model := cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, model, logger), nil
	case ProviderGemini:
		client, err := NewGenAIClient(ctx, cfg.LLMAPIKey, cfg.GCPProject, cfg.GCPLocation)
		if err != nil {
			return nil, err
		}
		return NewGeminiClient(client, cfg.LLMModel), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}
