// Package transcribe turns an audio file into timed SRT subtitles through a
// remote speech recognition service.
package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedProvider = errors.New("unsupported transcription provider")

func logger() *zerolog.Logger {
	l := log.With().Str("component", "transcriber").Logger()
	return &l
}

// Transcriber returns the SRT text for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Config selects and configures a transcriber.
type Config struct {
	Provider string // whisper | tencent
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Compress bool
	TempDir  string

	TencentSecretID  string
	TencentSecretKey string
}

// Factory builds the transcriber named by cfg.Provider.
func Factory(cfg Config) (Transcriber, error) {
	var t Transcriber
	switch cfg.Provider {
	case "", "whisper":
		if cfg.BaseURL == "" {
			return nil, errors.New("whisper base url is required")
		}
		t = NewWhisper(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Language)
	case "tencent":
		tc, err := NewTencent(cfg.TencentSecretID, cfg.TencentSecretKey, cfg.Language)
		if err != nil {
			return nil, err
		}
		t = tc
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}

	if cfg.Compress {
		t = Compressed(t, cfg.TempDir)
	}
	return t, nil
}
