package anthropic

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

type claude struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropic(apiKey, modelName string) (*claude, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	model := anthropic.Model(modelName)
	if modelName == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}
	return &claude{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *claude) Name() string {
	return "anthropic"
}

func (c *claude) HandleText(ctx context.Context, msg string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(msg)),
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("could not get response from anthropic")
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", errors.New("no text in anthropic response")
	}
	return text, nil
}
