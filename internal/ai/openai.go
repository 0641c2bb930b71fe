package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const openaiModel = openai.GPT4o

// OpenAIClient is the alternative text-generation capability, selectable via
// AI_PROVIDER. Image identification stays on Gemini either way.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  openaiModel,
	}, nil
}

// GenerateText sends a single-message chat completion and returns the raw
// response content.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelVersion returns the model tag recorded on analyses.
func (c *OpenAIClient) ModelVersion() string {
	return c.model
}
