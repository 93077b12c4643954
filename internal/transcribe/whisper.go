package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultWhisperModel = "base"
	whisperTimeout      = 30 * time.Minute
)

// Whisper talks to a Whisper compatible /v1/audio/transcriptions endpoint.
type Whisper struct {
	client   *openai.Client
	model    string
	language string
}

func NewWhisper(baseURL, apiKey, model, language string) *Whisper {
	if model == "" {
		model = defaultWhisperModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: whisperTimeout}

	return &Whisper{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	logger().Info().Str("file", audioPath).Str("model", w.model).Msg("Sending audio to whisper")

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatSRT,
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("whisper transcription: empty result")
	}
	return resp.Text, nil
}
