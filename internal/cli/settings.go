package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"molten-lyrics/internal/app"
	"molten-lyrics/internal/settings"
)

var offsetCmd = &cobra.Command{
	Use:   "offset [seconds]",
	Short: "Show or set the lyric offset",
	Long: `Show or set the lyric offset in seconds. Positive values show lyrics
earlier. A running daemon applies the change on its next check.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return editSettings(cmd, nil)
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", args[0], err)
		}
		if err := settings.ValidateOffset(v); err != nil {
			return err
		}
		return editSettings(cmd, func(s *settings.Settings) { s.LyricOffset = v })
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Show or hide the desktop lyric overlay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSettings(cmd, func(s *settings.Settings) { s.ShowDesktopLyric = !s.ShowDesktopLyric })
	},
}

func init() {
	rootCmd.AddCommand(offsetCmd)
	rootCmd.AddCommand(toggleCmd)
}

// editSettings applies fn to the stored settings, or only prints them when
// fn is nil.
func editSettings(cmd *cobra.Command, fn func(*settings.Settings)) error {
	store, closeStore, err := app.SettingsStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var s settings.Settings
	if fn != nil {
		s, err = settings.Update(cmd.Context(), store, fn)
	} else {
		s, err = store.Load(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "lyric offset: %.2fs\ndesktop lyric: %v\n", s.LyricOffset, s.ShowDesktopLyric)
	return nil
}
