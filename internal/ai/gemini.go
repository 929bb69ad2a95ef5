package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// enumMIMEType makes Gemini answer with exactly one schema enum value.
const enumMIMEType = "text/x.enum"

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Classify(ctx context.Context, model string, prompt Prompt) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt.Input), geminiRequestConfig(prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func geminiRequestConfig(prompt Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if prompt.Instruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.Instruction}}}
	}
	if len(prompt.Choices) > 0 {
		cfg.ResponseMIMEType = enumMIMEType
		cfg.ResponseSchema = &genai.Schema{Type: genai.TypeString, Enum: prompt.Choices}
	}
	return cfg
}

func createGeminiFactory(args interface{}) (Provider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
