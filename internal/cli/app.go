package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/captioner/internal/audio"
	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/storage"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
)

// newRecognizer builds the configured provider on first use, wrapped in
// chunked recognition when a chunk duration is set.
func newRecognizer(c *config.Config, log *logging.Logger) transcribe.Recognizer {
	return transcribe.NewLazy(func(ctx context.Context) (transcribe.Recognizer, error) {
		r, err := transcribe.Factory(ctx, transcribe.Provider(c.Recognize.Provider), transcribe.Config{
			APIKey: c.APIKey(),
			Model:  c.Recognize.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create recognizer: %w", err)
		}
		log.Debugw("Recognizer ready",
			"provider", c.Recognize.Provider,
			"model", c.Recognize.Model)

		if c.Recognize.ChunkDuration <= 0 {
			return r, nil
		}
		return transcribe.NewChunked(
			r,
			float64(c.Recognize.ChunkDuration),
			c.Recognize.Concurrency,
			c.TempDir,
			log,
		), nil
	})
}

func newEngine(c *config.Config, store storage.BlobStore, log *logging.Logger) (*engine.Engine, error) {
	return engine.New(
		newRecognizer(c, log),
		store,
		engine.WithLogger(log),
		engine.WithPreparer(audio.NewPreparer()),
		engine.WithTempDir(c.TempDir),
		engine.WithMaxChars(c.MaxChars),
	)
}

// styleFromFlags turns repeated --style key=value flags into options. It
// returns nil when no flag was given.
func styleFromFlags(values map[string]string) (*subtitle.StyleOptions, error) {
	if len(values) == 0 {
		return nil, nil
	}
	opts := make(map[string]any, len(values))
	for k, v := range values {
		opts[strings.TrimSpace(k)] = v
	}
	style, err := subtitle.ParseStyleOptions(opts)
	if err != nil {
		return nil, err
	}
	return &style, nil
}

// outputPath picks explicit when set, otherwise input's path with its
// extension replaced by ext. URL inputs are named after their last path
// element in the working directory.
func outputPath(input, explicit, ext string) string {
	if explicit != "" {
		return explicit
	}
	if isURL(input) {
		if u, err := url.Parse(input); err == nil {
			input = filepath.Base(u.Path)
		}
		if input == "" || input == "/" || input == "." {
			input = "output"
		}
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func isURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "s3":
		return true
	default:
		return false
	}
}

func checkLocalMedia(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if !audio.IsMediaFile(path) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(path))
	}
	return nil
}

func writeOutput(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
