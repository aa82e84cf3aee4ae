package speech

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"emotion-diary/internal/domain"
)

const defaultGeminiSTTModel = "gemini-1.5-flash-002"

// GeminiTranscriber envia el audio inline a Gemini y pide solo la transcripcion.
type GeminiTranscriber struct {
	client   *genai.Client
	model    string
	language string
}

func NewGeminiTranscriber(client *genai.Client, model, language string) *GeminiTranscriber {
	if model == "" {
		model = defaultGeminiSTTModel
	}
	if language == "" {
		language = "ja-JP"
	}
	return &GeminiTranscriber{client: client, model: model, language: language}
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audio domain.AudioBlob) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}
	parts := []*genai.Part{
		genai.NewPartFromText(transcriptionInstruction(t.language)),
		genai.NewPartFromBytes(audio.Data, contentType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func transcriptionInstruction(language string) string {
	return fmt.Sprintf(
		"Transcribe the attached audio verbatim in its spoken language (%s). "+
			"Output only the transcript text, with no commentary, labels or timestamps.",
		language,
	)
}
