package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/audio"
)

var toMP3Cmd = &cobra.Command{
	Use:   "to-mp3 [media_file]",
	Short: "Convert the audio of a media file to MP3",
	Long: `Extract the audio track of an audio or video file as a stereo 44.1 kHz MP3.

Examples:
  captioner to-mp3 talk.mp4
  captioner to-mp3 talk.wav -o talk.mp3 --bitrate 320k`,
	Args: cobra.ExactArgs(1),
	RunE: runToMP3,
}

func init() {
	rootCmd.AddCommand(toMP3Cmd)

	toMP3Cmd.Flags().
		StringP("output", "o", "", "Output file path")
	toMP3Cmd.Flags().
		StringP("bitrate", "b", "192k", "MP3 bitrate (e.g., 128k, 320k)")
}

func runToMP3(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]

	bitrate, _ := cmd.Flags().GetString("bitrate")
	out, _ := cmd.Flags().GetString("output")

	if err := checkLocalMedia(mediaPath); err != nil {
		return err
	}
	if !strings.HasSuffix(bitrate, "k") {
		return fmt.Errorf("invalid bitrate %q: expected a value like 192k", bitrate)
	}

	out = outputPath(mediaPath, out, ".mp3")
	if filepath.Clean(out) == filepath.Clean(mediaPath) {
		return fmt.Errorf("output %s would overwrite the input", out)
	}

	logger.Infow("Converting to mp3",
		"input", mediaPath,
		"output", out,
		"bitrate", bitrate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := audio.ConvertToMP3(ctx, mediaPath, out, bitrate); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	abs, _ := filepath.Abs(out)
	fmt.Printf("MP3 written: %s\n", abs)
	return nil
}
