package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/subtitle"
)

var convertCmd = &cobra.Command{
	Use:   "convert [subtitle_file]",
	Short: "Convert subtitles between SRT, VTT and ASS",
	Long: `Convert a subtitle file to another format.

The target format comes from --to, or from the extension of --output.
ASS output carries a single style built from --style options.

Examples:
  captioner convert talk.srt --to vtt
  captioner convert talk.vtt -o talk.ass --style font_size=32 --style margin_v=40`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().
		StringP("output", "o", "", "Output subtitle path (defaults to the input name)")
	convertCmd.Flags().
		StringP("to", "t", "", "Target format (srt, vtt, ass)")
	convertCmd.Flags().
		StringToString("style", nil, "ASS style option, repeatable (e.g., font_name=Roboto)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	in := args[0]

	explicitOut, _ := cmd.Flags().GetString("output")
	to, _ := cmd.Flags().GetString("to")
	styleFlags, _ := cmd.Flags().GetStringToString("style")

	format, err := convertTarget(to, explicitOut)
	if err != nil {
		return err
	}
	style, err := styleFromFlags(styleFlags)
	if err != nil {
		return err
	}

	out := outputPath(in, explicitOut, subtitle.GetExtensionForFormat(format))
	entries, err := convertFile(in, out, format, style)
	if err != nil {
		return err
	}

	logger.Infow("Converted subtitles",
		"input", in,
		"output", out,
		"format", format,
		"entries", entries,
	)

	abs, _ := filepath.Abs(out)
	fmt.Printf("Subtitles written: %s\n", abs)
	return nil
}

// convertTarget picks the format named by to, falling back to the
// extension of the output path.
func convertTarget(to, output string) (subtitle.Format, error) {
	if to != "" {
		return subtitle.ParseFormat(to)
	}
	if output != "" {
		return subtitle.GetFormatFromExtension(output), nil
	}
	return "", fmt.Errorf("either --to or --output is required")
}

// convertFile rewrites the subtitle file in as format at out and returns
// the number of entries written.
func convertFile(in, out string, format subtitle.Format, style *subtitle.StyleOptions) (int, error) {
	if filepath.Clean(in) == filepath.Clean(out) {
		return 0, fmt.Errorf("output would overwrite input: %s", in)
	}

	file, err := subtitle.Open(in)
	if err != nil {
		return 0, err
	}

	w, err := subtitle.NewWriter(format)
	if err != nil {
		return 0, err
	}
	if ass, ok := w.(*subtitle.ASSWriter); ok && style != nil {
		ass.Style = *style
	}

	sub := file.Subtitle()
	if err := w.Write(sub, out); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", out, err)
	}
	return len(sub.Entries), nil
}
