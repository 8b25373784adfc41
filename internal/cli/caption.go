package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/audio"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/video"
)

var captionCmd = &cobra.Command{
	Use:   "caption [video_file] [subtitle_file]",
	Short: "Burn subtitles into a video",
	Long: `Render an SRT, VTT or ASS file into the frames of a video.

ASS files carrying their own styles are used as is. Other formats, and
ASS files made only of Dialogue lines, are styled with --style options.

Examples:
  captioner caption talk.mp4 talk.ass
  captioner caption talk.mp4 talk.srt -o talk-captioned.mp4 --style font_size=32`,
	Args: cobra.ExactArgs(2),
	RunE: runCaption,
}

func init() {
	rootCmd.AddCommand(captionCmd)

	captionCmd.Flags().
		StringP("output", "o", "", "Output video path (defaults to <video>-captioned)")
	captionCmd.Flags().
		StringToString("style", nil, "Style option, repeatable (e.g., font_name=Roboto)")
}

func runCaption(cmd *cobra.Command, args []string) error {
	videoPath, subPath := args[0], args[1]

	explicitOut, _ := cmd.Flags().GetString("output")
	styleFlags, _ := cmd.Flags().GetStringToString("style")

	kind, err := audio.DetectKind(videoPath)
	if err != nil {
		return err
	}
	if kind != audio.KindVideo {
		return fmt.Errorf("not a video file: %s", videoPath)
	}
	if _, err := os.Stat(subPath); err != nil {
		return fmt.Errorf("subtitle file not found: %s", subPath)
	}

	style := subtitle.DefaultStyle()
	if parsed, err := styleFromFlags(styleFlags); err != nil {
		return err
	} else if parsed != nil {
		style = *parsed
	}

	out := explicitOut
	if out == "" {
		ext := filepath.Ext(videoPath)
		out = outputPath(videoPath, "", "-captioned"+ext)
	}

	logger.Infow("Burning subtitles",
		"video", videoPath,
		"subtitles", subPath,
		"output", out,
		"fonts_dir", cfg.FontsDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	muxer := video.NewMuxer(cfg.FontsDir, cfg.TempDir)
	if err := muxer.BurnSubtitles(ctx, videoPath, subPath, out, style); err != nil {
		return fmt.Errorf("caption burn-in failed: %w", err)
	}

	abs, _ := filepath.Abs(out)
	fmt.Printf("Captioned video written: %s\n", abs)
	return nil
}
