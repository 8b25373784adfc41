package cli

import (
	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/logging"
)

var (
	verbose    bool
	configFile string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "captioner",
	Short: "Transcripts and styled captions from speech",
	Long: `Captioner turns audio and video into transcripts and timed captions.

Speech is recognized with OpenAI or Google Gemini and rendered as a
sentence level transcript, SRT, WebVTT or word-highlighted ASS. The same
engine is served over HTTP by the serve command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		loaded, err := config.Load(
			config.WithConfigFile(configFile),
			config.WithFlag("recognize.provider", cmd.Flags().Lookup("provider")),
			config.WithFlag("recognize.model", cmd.Flags().Lookup("model")),
			config.WithFlag("recognize.concurrency", cmd.Flags().Lookup("concurrency")),
			config.WithFlag("recognize.chunk_duration", cmd.Flags().Lookup("chunk-duration")),
			config.WithFlag("fonts_dir", cmd.Flags().Lookup("fonts-dir")),
			config.WithFlag("temp_dir", cmd.Flags().Lookup("temp-dir")),
		)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("provider", "", "Recognition provider (openai, gemini)")
	flags.String("model", "", "Recognition model")
	flags.Int("concurrency", 0, "Parallel recognition workers for chunked media")
	flags.Int("chunk-duration", 0, "Chunk length in seconds for long media, 0 disables chunking")
	flags.String("fonts-dir", "", "Directory with fonts for burned-in captions")
	flags.String("temp-dir", "", "Directory for temporary files")
}
