package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash-002"

// NewGenAIClient crea un cliente de Gemini. Con apiKey usa la Gemini API;
// sin ella usa Vertex AI con las credenciales por defecto del proyecto.
func NewGenAIClient(ctx context.Context, apiKey, project, location string) (*genai.Client, error) {
	cc := &genai.ClientConfig{}
	if apiKey != "" {
		cc.APIKey = apiKey
		cc.Backend = genai.BackendGeminiAPI
	} else {
		if project == "" {
			return nil, fmt.Errorf("GCP_PROJECT is required for Vertex AI")
		}
		cc.Project = project
		cc.Location = location
		cc.Backend = genai.BackendVertexAI
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// GeminiClient implementa LLMClient sobre google.golang.org/genai.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("llm empty response")
	}
	return text, nil
}
