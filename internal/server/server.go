package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mgpai22/captioner/internal/audio"
	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/storage"
	"github.com/mgpai22/captioner/internal/video"
)

// Runner runs one caption synthesis request.
type Runner interface {
	Run(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// ConvertFunc transcodes media into an mp3 at outputPath.
type ConvertFunc func(ctx context.Context, inputPath, outputPath, bitrate string) error

// Server exposes the engine and the media helpers over HTTP.
type Server struct {
	runner   Runner
	store    storage.BlobStore
	muxer    video.Muxer
	composer video.Composer
	convert  ConvertFunc
	logger   *logging.Logger
	validate *validator.Validate
	router   *gin.Engine
	webhooks *http.Client
	tempDir  string
	timeout  time.Duration

	jobs sync.WaitGroup
}

type Option func(*Server)

func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMuxer(m video.Muxer) Option {
	return func(s *Server) { s.muxer = m }
}

func WithComposer(c video.Composer) Option {
	return func(s *Server) { s.composer = c }
}

func WithConverter(fn ConvertFunc) Option {
	return func(s *Server) { s.convert = fn }
}

// WithTempDir sets where per-job workspaces are created.
func WithTempDir(dir string) Option {
	return func(s *Server) { s.tempDir = dir }
}

// WithJobTimeout bounds each job. Zero means no limit.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithWebhookClient sets the client used to deliver webhook results.
func WithWebhookClient(c *http.Client) Option {
	return func(s *Server) { s.webhooks = c }
}

func New(runner Runner, store storage.BlobStore, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		store:    store,
		convert:  audio.ConvertToMP3,
		logger:   logging.Nop(),
		validate: newValidator(),
		webhooks: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(recovery(s.logger), requestID(), requestLogger(s.logger))
	s.routes(router)
	s.router = router

	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/transcribe-media", s.handleTranscribe)
	v1.POST("/caption-video", s.handleCaption)
	v1.POST("/media-to-mp3", s.handleMP3)
	v1.POST("/audio-mixing", s.handleMix)
	v1.POST("/combine-videos", s.handleCombine(endpointCombine))
	v1.POST("/video/concatenate", s.handleCombine(endpointConcatenate))
	v1.POST("/image-to-video", s.handleImage)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every background job has finished.
func (s *Server) Wait() {
	s.jobs.Wait()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and waits for background jobs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Infow("HTTP server started", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Infow("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.Wait()
	s.logger.Infow("HTTP server shut down")
	return nil
}
