// Package openai talks to any OpenAI compatible chat completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const maxTokens = 2000

type Chat struct {
	model  string
	client *openai.Client
}

// New targets baseURL, e.g. a local llama.cpp or DeepSeek endpoint.
func New(apiKey, model, baseURL string) *Chat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Chat{model: model, client: openai.NewClientWithConfig(cfg)}
}

func (c *Chat) Name() string {
	return "openai:" + c.model
}

// HandleText sends msg as a single user turn.
func (c *Chat) HandleText(ctx context.Context, msg string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: msg},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion with %s failed: %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from openai")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
