package transcribe

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/mgpai22/captioner/internal/audio"
	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// Chunked splits long media into fixed windows and recognizes them in
// parallel, shifting segment and word times back onto the source timeline.
// Media no longer than one window goes straight to the inner recognizer.
type Chunked struct {
	inner        Recognizer
	chunkSeconds float64
	concurrency  int
	tempDir      string
	logger       *logging.Logger

	duration func(ctx context.Context, path string) (float64, error)
	split    func(ctx context.Context, path string, chunkSeconds float64, dir string) ([]audio.ChunkInfo, error)
}

func NewChunked(inner Recognizer, chunkSeconds float64, concurrency int, tempDir string, logger *logging.Logger) *Chunked {
	if concurrency <= 0 {
		concurrency = 3
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Chunked{
		inner:        inner,
		chunkSeconds: chunkSeconds,
		concurrency:  concurrency,
		tempDir:      tempDir,
		logger:       logger,
		duration:     audio.GetDuration,
		split: func(ctx context.Context, path string, chunkSeconds float64, dir string) ([]audio.ChunkInfo, error) {
			return audio.ChunkAudio(ctx, path, chunkSeconds, dir, concurrency)
		},
	}
}

// holds the result of transcribing a chunk
type chunkResult struct {
	Index    int
	Segments []subtitle.Segment
	Error    error
}

func (c *Chunked) Recognize(ctx context.Context, mediaPath string, opts Options) ([]subtitle.Segment, error) {
	if c.chunkSeconds <= 0 {
		return c.inner.Recognize(ctx, mediaPath, opts)
	}

	total, err := c.duration(ctx, mediaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}
	if total <= c.chunkSeconds {
		return c.inner.Recognize(ctx, mediaPath, opts)
	}

	dir, err := os.MkdirTemp(c.tempDir, "captioner-chunks-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warnw("Failed to remove chunk directory", "dir", dir, "error", err)
		}
	}()

	chunks, err := c.split(ctx, mediaPath, c.chunkSeconds, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to split audio: %w", err)
	}

	c.logger.Debugw("Created audio chunks",
		"chunks", len(chunks),
		"duration", total,
		"concurrency", c.concurrency,
	)

	return c.recognizeChunks(ctx, chunks, opts)
}

func (c *Chunked) recognizeChunks(ctx context.Context, chunks []audio.ChunkInfo, opts Options) ([]subtitle.Segment, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan audio.ChunkInfo)
	resultChan := make(chan chunkResult, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Go(func() {
			for chunk := range workChan {
				if ctx.Err() != nil {
					resultChan <- chunkResult{Index: chunk.Index, Error: ctx.Err()}
					continue
				}
				segments, err := c.inner.Recognize(ctx, chunk.Path, opts)
				if err != nil {
					cancel()
				}
				resultChan <- chunkResult{
					Index:    chunk.Index,
					Segments: offsetSegments(segments, chunk.Start),
					Error:    err,
				}
			}
		})
	}

	go func() {
		defer close(workChan)
		for _, chunk := range chunks {
			select {
			case <-ctx.Done():
				return
			case workChan <- chunk:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]chunkResult, 0, len(chunks))
	var firstErr error
	for result := range resultChan {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d failed: %w", result.Index, result.Error)
			}
			continue
		}
		results = append(results, result)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && len(results) < len(chunks) {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	var all []subtitle.Segment
	for _, r := range results {
		all = append(all, r.Segments...)
	}
	return all, nil
}

func offsetSegments(segments []subtitle.Segment, offset float64) []subtitle.Segment {
	out := make([]subtitle.Segment, len(segments))
	for i, seg := range segments {
		seg.Start += offset
		seg.End += offset
		if len(seg.Words) > 0 {
			words := make([]subtitle.Word, len(seg.Words))
			for j, w := range seg.Words {
				w.Start += offset
				w.End += offset
				words[j] = w
			}
			seg.Words = words
		}
		out[i] = seg
	}
	return out
}
