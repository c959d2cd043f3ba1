package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const generationModelName = "gemini-1.5-flash"

// GeminiGenerator produces free-form text from a prompt via the Gemini
// generation API. Single-shot: no streaming, no history, no retry.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a new Gemini generator
func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{
		client: client,
		model:  generationModelName,
	}
}

// Generate runs one generation call and flattens the text parts of the
// returned candidates.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: model returned no candidates", ErrGenerationFailed)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}

	if builder.Len() == 0 {
		return "", fmt.Errorf("%w: model returned empty content", ErrGenerationFailed)
	}

	return builder.String(), nil
}
