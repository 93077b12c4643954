package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"molten-lyrics/internal/app"
	"molten-lyrics/internal/lyrics"
	"molten-lyrics/internal/summary"
	"molten-lyrics/internal/transcribe"
	"molten-lyrics/pkg/ai"
	"molten-lyrics/pkg/fileutil"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [audio_file]",
	Short: "Transcribe an audio file into timed SRT lyrics",
	Long: `Send an audio file to the configured transcription provider (a Whisper
compatible server or Tencent Cloud ASR) and save the result as .srt next to
the audio, where the daemon and the play command pick it up.

Examples:
  molten-lyrics transcribe episode.mp3
  molten-lyrics transcribe episode.mp3 -o subs/episode.srt --summary
  molten-lyrics transcribe song.flac --provider tencent --compress`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().
		StringP("output", "o", "", "Output .srt path (default: next to the audio)")
	transcribeCmd.Flags().
		StringP("provider", "p", "", "Transcription provider (whisper, tencent)")
	transcribeCmd.Flags().
		StringP("language", "l", "", "Language code (e.g., zh, en)")
	transcribeCmd.Flags().
		Bool("compress", false, "Re-encode to 16 kHz mono mp3 before upload")
	transcribeCmd.Flags().
		Bool("summary", false, "Print an AI summary of the transcript")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	audioPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".srt"
	}

	tcfg := app.TranscribeConfig(cfg)
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		tcfg.Provider = p
	}
	if l, _ := cmd.Flags().GetString("language"); l != "" {
		tcfg.Language = l
	}
	if c, _ := cmd.Flags().GetBool("compress"); c {
		tcfg.Compress = true
	}

	t, err := transcribe.Factory(tcfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	log.Info().Str("file", audioPath).Str("provider", tcfg.Provider).Msg("Transcribing")
	srt, err := t.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}
	lines := lyrics.ParseSRT(srt)
	if err := fileutil.WriteFileAtomic(outputPath, []byte(srt), 0644); err != nil {
		return err
	}
	log.Info().Str("output", outputPath).Int("lines_count", len(lines)).Msg("Transcription saved")

	if withSummary, _ := cmd.Flags().GetBool("summary"); !withSummary {
		return nil
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("summary needs [ai] api_key")
	}
	client, err := ai.New(cfg.AI.ModuleName, cfg.AI.APIKey, cfg.AI.BaseURL)
	if err != nil {
		return err
	}
	text, err := summary.New(client, nil).Summarize(ctx, "", lines)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
