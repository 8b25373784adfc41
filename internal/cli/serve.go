package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/server"
	"github.com/mgpai22/captioner/internal/storage"
	"github.com/mgpai22/captioner/internal/video"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the captioning endpoints over HTTP",
	Long: `Start the HTTP server.

Endpoints:
  POST /v1/transcribe-media  transcript, srt, vtt or ass from a media URL
  POST /v1/caption-video     burn captions into a video
  POST /v1/media-to-mp3      convert media to mp3
  GET  /healthz              liveness

Requests carrying a webhook_url are answered with 202 and the result is
posted to the webhook when the job finishes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	log := logger
	if verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		serverLog, err := logging.NewServerLogger(cfg.Server.LogLevel)
		if err != nil {
			return err
		}
		log = serverLog
		defer log.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, store, log)
	if err != nil {
		return err
	}

	muxer := video.NewMuxer(cfg.FontsDir, cfg.TempDir)
	srv := server.New(eng, store,
		server.WithLogger(log),
		server.WithMuxer(muxer),
		server.WithComposer(muxer),
		server.WithTempDir(cfg.TempDir),
		server.WithJobTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second),
	)

	log.Infow("Starting captioner server",
		"addr", cfg.Server.Addr,
		"provider", cfg.Recognize.Provider,
		"storage", cfg.Storage.Provider,
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
