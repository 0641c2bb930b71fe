package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// GeminiClient wraps the Gemini API behind the narrow generation interfaces
// the adapters consume.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed capability client. A missing or
// rejected API key fails here, at construction time.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: geminiModel}, nil
}

// GenerateText sends a text-only prompt and returns the raw response text.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

// GenerateFromImage sends a prompt together with inline image data.
func (c *GeminiClient) GenerateFromImage(ctx context.Context, mimeType string, image []byte, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	img := genai.ImageData(mimeFormat(mimeType), image)
	resp, err := model.GenerateContent(ctx, img, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

// ModelVersion returns the model tag recorded on analyses.
func (c *GeminiClient) ModelVersion() string {
	return c.model
}

// Close releases the underlying client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}

// mimeFormat converts a full MIME type ("image/png") to the bare format name
// genai.ImageData expects.
func mimeFormat(mimeType string) string {
	const prefix = "image/"
	if len(mimeType) > len(prefix) && mimeType[:len(prefix)] == prefix {
		return mimeType[len(prefix):]
	}
	return "jpeg"
}
