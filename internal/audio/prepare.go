package audio

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Preparer transcodes media into compact recognizer input.
type Preparer struct {
	Options CompressionOptions
}

func NewPreparer() *Preparer {
	return &Preparer{Options: DefaultCompressionOptions()}
}

// Prepare writes a uniquely named transcode of inputPath into dir.
func (p *Preparer) Prepare(ctx context.Context, inputPath, dir string) (string, error) {
	opts := p.Options
	if opts.Format == "" {
		opts = DefaultCompressionOptions()
	}

	out := filepath.Join(dir, uuid.NewString()+"."+opts.Format)
	if err := CompressAudio(ctx, inputPath, out, opts); err != nil {
		return "", fmt.Errorf("failed to prepare %s: %w", filepath.Base(inputPath), err)
	}
	return out, nil
}
