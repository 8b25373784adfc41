package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/storage"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [media]",
	Short: "Transcribe media into a transcript or captions",
	Long: `Transcribe an audio or video file, or a media URL, and write the result.

Output kinds:
  transcript  sentence level transcript (.txt) plus SRT and highlight ASS
  srt         one SubRip cue per recognized segment
  vtt         one WebVTT cue per recognized segment
  ass         word-highlighted ASS captions

Examples:
  captioner transcribe talk.mp4
  captioner transcribe talk.mp4 --kind ass --max-chars 32 --style font_name=Roboto
  captioner transcribe podcast.mp3 -k srt --sentence-level -l en
  captioner transcribe https://example.com/clip.mp4 -k vtt -o clip.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().
		StringP("kind", "k", "transcript", "Output kind (transcript, srt, vtt, ass)")
	transcribeCmd.Flags().
		StringP("output", "o", "", "Output file path (defaults to the input name)")
	transcribeCmd.Flags().
		StringP("language", "l", "", "Language hint (e.g., en, es, french)")
	transcribeCmd.Flags().
		IntP("words-per-caption", "w", 0, "Fixed number of words per caption")
	transcribeCmd.Flags().
		Int("max-chars", 0, "Maximum characters per caption line")
	transcribeCmd.Flags().
		Bool("sentence-level", false, "Emit one srt/vtt cue per sentence")
	transcribeCmd.Flags().
		StringToString("style", nil, "ASS style option, repeatable (e.g., font_size=32)")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	media := args[0]

	kindStr, _ := cmd.Flags().GetString("kind")
	explicitOut, _ := cmd.Flags().GetString("output")
	language, _ := cmd.Flags().GetString("language")
	wordsPerCaption, _ := cmd.Flags().GetInt("words-per-caption")
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	sentenceLevel, _ := cmd.Flags().GetBool("sentence-level")
	styleFlags, _ := cmd.Flags().GetStringToString("style")

	kind, err := engine.ParseOutputKind(kindStr)
	if err != nil {
		return err
	}
	style, err := styleFromFlags(styleFlags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store storage.BlobStore
	if isURL(media) {
		store, err = storage.New(ctx, cfg.Storage)
		if err != nil {
			return err
		}
	} else if err := checkLocalMedia(media); err != nil {
		return err
	}

	eng, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	logger.Infow("Starting transcription",
		"input", media,
		"kind", kind,
		"provider", cfg.Recognize.Provider,
		"words_per_caption", wordsPerCaption,
		"max_chars", maxChars,
	)

	res, err := eng.Run(ctx, engine.Request{
		Media:           media,
		Output:          kind,
		WordsPerCaption: wordsPerCaption,
		MaxChars:        maxChars,
		Language:        language,
		Style:           style,
		SentenceLevel:   sentenceLevel,
	})
	if err != nil {
		return err
	}

	written, err := writeResult(res, media, explicitOut)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		logger.Warnw("Degraded output", "warning", w)
	}
	for _, p := range written {
		abs, _ := filepath.Abs(p)
		fmt.Printf("Wrote %s\n", abs)
	}
	if res.FileURL != "" {
		fmt.Printf("Published: %s\n", res.FileURL)
	}
	if res.ASSFileURL != "" {
		fmt.Printf("Published ASS: %s\n", res.ASSFileURL)
	}

	return nil
}

// writeResult stores the rendered fields of res next to media (or at
// explicit) and returns the paths written. A transcript is written as
// .txt, .srt and .ass siblings named after explicit without its extension.
func writeResult(res *engine.Result, media, explicit string) ([]string, error) {
	type file struct {
		path    string
		content string
	}

	var files []file
	switch res.Output {
	case engine.OutputTranscript:
		// the three files share a stem, so an explicit name only picks it
		stem := outputPath(media, "", "")
		if explicit != "" {
			stem = strings.TrimSuffix(explicit, filepath.Ext(explicit))
		}
		files = []file{
			{stem + ".txt", res.Transcript + "\n"},
			{stem + ".srt", res.SRT},
			{stem + ".ass", res.ASS},
		}
	case engine.OutputSRT:
		files = []file{{outputPath(media, explicit, ".srt"), res.SRT}}
	case engine.OutputVTT:
		files = []file{{outputPath(media, explicit, ".vtt"), res.VTT}}
	case engine.OutputASS:
		files = []file{{outputPath(media, explicit, ".ass"), res.ASS}}
	default:
		return nil, fmt.Errorf("unexpected output kind %q", res.Output)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeOutput(f.path, f.content); err != nil {
			return paths, err
		}
		paths = append(paths, f.path)
	}
	return paths, nil
}
