package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Compress re-encodes audio to 16 kHz mono 64k mp3, small enough for upload
// while keeping speech intelligible.
func Compress(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	kwargs := ffmpeg.KwArgs{
		"vn":     "",
		"ar":     16000,
		"ac":     1,
		"acodec": "libmp3lame",
		"b:a":    "64k",
	}
	err := ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	return ctx.Err()
}

type compressed struct {
	next    Transcriber
	tempDir string
}

// Compressed compresses the audio into tempDir before handing it to next.
func Compressed(next Transcriber, tempDir string) Transcriber {
	return &compressed{next: next, tempDir: tempDir}
}

func (c *compressed) Transcribe(ctx context.Context, audioPath string) (string, error) {
	dir, err := os.MkdirTemp(c.tempDir, "molten-lyrics-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	out := filepath.Join(dir, base+".mp3")
	if err := Compress(ctx, audioPath, out); err != nil {
		return "", err
	}
	logger().Debug().Str("file", out).Msg("Audio compressed")
	return c.next.Transcribe(ctx, out)
}
