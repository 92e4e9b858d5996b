package generator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiLLM implements LLMClient on the Google GenAI SDK.
type GeminiLLM struct {
	client      *genai.Client
	model       string
	visionModel string
}

func NewGeminiLLMFromConfig(cfg *LLMSettings) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; provide llm.api_key or GEMINI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = model
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiLLM{client: client, model: model, visionModel: vision}, nil
}

func (g *GeminiLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var contents []*genai.Content
	for _, h := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if h.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(h.Content, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt.User)}
	for _, img := range prompt.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.Temperature != nil {
		t := float32(*prompt.Temperature)
		cfg.Temperature = &t
	}
	if prompt.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(prompt.MaxTokens)
	}
	if prompt.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	model := g.model
	if len(prompt.Images) > 0 {
		model = g.visionModel
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
