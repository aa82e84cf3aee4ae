package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"emotion-diary/internal/domain"
)

const defaultOpenAISTTModel = "whisper-1"

// OpenAITranscriber usa el endpoint /audio/transcriptions de una API OpenAI-compatible.
type OpenAITranscriber struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	client   *http.Client
	logger   *zap.Logger
}

func NewOpenAITranscriber(baseURL, apiKey, model, language string, logger *zap.Logger) *OpenAITranscriber {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = defaultOpenAISTTModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAITranscriber{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		language: languageBase(language),
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   logger,
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio domain.AudioBlob) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("empty audio")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if t.language != "" {
		if err := mw.WriteField("language", t.language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	filename := audio.Filename
	if filename == "" {
		filename = "audio"
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio.Data); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		t.logger.Warn("transcription error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return "", fmt.Errorf("transcription http error: status=%d", resp.StatusCode)
	}

	var tr struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}
