// Package speech convierte audio del diario en texto usando un servicio externo.
package speech

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"emotion-diary/internal/config"
	"emotion-diary/internal/domain"
	"emotion-diary/internal/llm"
)

// Transcriber devuelve el texto reconocido en un audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audio domain.AudioBlob) (string, error)
}

// Proveedores soportados en STT_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewTranscriber construye el Transcriber configurado.
func NewTranscriber(ctx context.Context, cfg *config.AnalysisConfig, logger *zap.Logger) (Transcriber, error) {
	switch strings.ToLower(cfg.STTProvider) {
	case ProviderGemini:
		client, err := llm.NewGenAIClient(ctx, cfg.LLMAPIKey, cfg.GCPProject, cfg.GCPLocation)
		if err != nil {
			return nil, err
		}
		return NewGeminiTranscriber(client, cfg.STTModel, cfg.STTLanguage), nil
	case ProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for openai transcription")
		}
		return NewOpenAITranscriber(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.STTModel, cfg.STTLanguage, logger), nil
	}
	return nil, fmt.Errorf("unknown stt provider %q", cfg.STTProvider)
}

// MockTranscriber permite tests sin servicio de voz.
type MockTranscriber struct {
	Transcript string
	Err        error
	Last       domain.AudioBlob
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio domain.AudioBlob) (string, error) {
	m.Last = audio
	if m.Err != nil {
		return "", m.Err
	}
	return m.Transcript, nil
}

// languageBase reduce "ja-JP" a "ja".
func languageBase(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
