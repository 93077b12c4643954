package ai

import (
	"context"
	"fmt"
	"strings"

	"molten-lyrics/pkg/ai/anthropic"
	"molten-lyrics/pkg/ai/gemini"
	"molten-lyrics/pkg/ai/openai"
)

// Client is a single-turn text model.
type Client interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
}

// New picks a client by module name: "gemini", "anthropic" or a "claude-*"
// model, anything else is treated as an OpenAI compatible model name.
func New(moduleName, apiKey, baseURL string) (Client, error) {
	switch {
	case moduleName == "" || moduleName == "gemini" || strings.HasPrefix(moduleName, "gemini-"):
		model := ""
		if moduleName != "gemini" {
			model = moduleName
		}
		c, err := gemini.NewGemini(context.Background(), apiKey, model)
		if err != nil {
			return nil, err
		}
		return c, nil
	case moduleName == "anthropic" || strings.HasPrefix(moduleName, "claude"):
		model := ""
		if moduleName != "anthropic" {
			model = moduleName
		}
		c, err := anthropic.NewAnthropic(apiKey, model)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		if baseURL == "" {
			return nil, fmt.Errorf("base_url is required for model %s", moduleName)
		}
		return openai.New(apiKey, moduleName, baseURL), nil
	}
}

// CleanJSON strips markdown code fences some models wrap around JSON.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
