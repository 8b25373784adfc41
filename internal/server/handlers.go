package server

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/subtitle"
)

const (
	endpointTranscribe = "/v1/transcribe-media"
	endpointCaption    = "/v1/caption-video"
	endpointMP3        = "/v1/media-to-mp3"
)

type transcribeRequest struct {
	ID              string         `json:"id"`
	MediaURL        string         `json:"media_url" validate:"required,url"`
	Output          string         `json:"output"`
	WordsPerCaption int            `json:"words_per_caption" validate:"min=0"`
	MaxChars        int            `json:"max_chars" validate:"min=0"`
	Language        string         `json:"language"`
	SentenceLevel   bool           `json:"sentence_level"`
	Style           map[string]any `json:"style"`
	WebhookURL      string         `json:"webhook_url" validate:"omitempty,url"`
}

type captionRequest struct {
	ID          string         `json:"id"`
	VideoURL    string         `json:"video_url" validate:"required,url"`
	Captions    string         `json:"captions" validate:"required"`
	CaptionType string         `json:"caption_type" validate:"omitempty,oneof=srt vtt webvtt ass ssa"`
	Style       map[string]any `json:"style"`
	WebhookURL  string         `json:"webhook_url" validate:"omitempty,url"`
}

type mp3Request struct {
	ID         string `json:"id"`
	MediaURL   string `json:"media_url" validate:"required,url"`
	Bitrate    string `json:"bitrate" validate:"omitempty,endswith=k"`
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
}

// bind decodes and validates the JSON body into req.
func (s *Server) bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return s.check(req)
}

func (s *Server) handleTranscribe(c *gin.Context) {
	var req transcribeRequest
	if err := s.bind(c, &req); err != nil {
		reject(c, endpointTranscribe, req.ID, err)
		return
	}

	if req.Output == "" {
		req.Output = string(engine.OutputTranscript)
	}
	output, err := engine.ParseOutputKind(req.Output)
	if err != nil {
		reject(c, endpointTranscribe, req.ID, err)
		return
	}

	var style *subtitle.StyleOptions
	if len(req.Style) > 0 {
		st, err := subtitle.ParseStyleOptions(req.Style)
		if err != nil {
			reject(c, endpointTranscribe, req.ID, badRequest(err.Error()))
			return
		}
		style = &st
	}

	run := engine.Request{
		Media:           req.MediaURL,
		Output:          output,
		WordsPerCaption: req.WordsPerCaption,
		MaxChars:        req.MaxChars,
		Language:        req.Language,
		Style:           style,
		SentenceLevel:   req.SentenceLevel,
	}

	s.dispatch(c, endpointTranscribe, req.ID, req.WebhookURL, func(ctx context.Context, _ string) (any, error) {
		return s.runner.Run(ctx, run)
	})
}

func (s *Server) handleCaption(c *gin.Context) {
	var req captionRequest
	if err := s.bind(c, &req); err != nil {
		reject(c, endpointCaption, req.ID, err)
		return
	}
	if s.muxer == nil {
		reject(c, endpointCaption, req.ID, fmt.Errorf("caption burn-in is not configured"))
		return
	}

	style, err := subtitle.ParseStyleOptions(req.Style)
	if err != nil {
		reject(c, endpointCaption, req.ID, badRequest(err.Error()))
		return
	}

	var format subtitle.Format
	if req.CaptionType != "" {
		if format, err = subtitle.ParseFormat(req.CaptionType); err != nil {
			reject(c, endpointCaption, req.ID, badRequest(err.Error()))
			return
		}
	}

	s.dispatch(c, endpointCaption, req.ID, req.WebhookURL, func(ctx context.Context, dir string) (any, error) {
		videoPath, err := s.store.Download(ctx, req.VideoURL, dir)
		if err != nil {
			return nil, ioError(engine.StageDownload, fmt.Errorf("video: %w", err))
		}

		subPath, err := s.materializeCaptions(ctx, req.Captions, format, dir)
		if err != nil {
			return nil, err
		}

		outPath := filepath.Join(dir, uuid.NewString()+videoExt(videoPath))
		if err := s.muxer.BurnSubtitles(ctx, videoPath, subPath, outPath, style); err != nil {
			return nil, ioError(engine.StageRender, err)
		}

		link, err := s.store.Upload(ctx, outPath)
		if err != nil {
			return nil, ioError(engine.StageUpload, err)
		}
		return gin.H{"file_url": link}, nil
	})
}

// materializeCaptions fetches caption URLs and writes inline caption text
// to a file named after its format, detected when format is empty.
func (s *Server) materializeCaptions(ctx context.Context, captions string, format subtitle.Format, dir string) (string, error) {
	if isHTTPURL(captions) {
		p, err := s.store.Download(ctx, captions, dir)
		if err != nil {
			return "", ioError(engine.StageDownload, fmt.Errorf("captions: %w", err))
		}
		return p, nil
	}

	if format == "" {
		format = subtitle.DetectFormat(captions)
	}

	p := filepath.Join(dir, uuid.NewString()+subtitle.GetExtensionForFormat(format))
	if err := os.WriteFile(p, []byte(captions), 0644); err != nil {
		return "", ioError(engine.StageRender, err)
	}
	return p, nil
}

func (s *Server) handleMP3(c *gin.Context) {
	var req mp3Request
	if err := s.bind(c, &req); err != nil {
		reject(c, endpointMP3, req.ID, err)
		return
	}

	s.dispatch(c, endpointMP3, req.ID, req.WebhookURL, func(ctx context.Context, dir string) (any, error) {
		src, err := s.store.Download(ctx, req.MediaURL, dir)
		if err != nil {
			return nil, ioError(engine.StageDownload, err)
		}

		out := filepath.Join(dir, uuid.NewString()+".mp3")
		if err := s.convert(ctx, src, out, req.Bitrate); err != nil {
			return nil, ioError(engine.StagePrepare, err)
		}

		link, err := s.store.Upload(ctx, out)
		if err != nil {
			return nil, ioError(engine.StageUpload, err)
		}
		return gin.H{"file_url": link}, nil
	})
}

func ioError(stage engine.Stage, err error) error {
	return &engine.Error{Kind: engine.KindIO, Stage: stage, Err: err}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func videoExt(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return ".mp4"
}
