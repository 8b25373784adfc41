package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/video"
)

const (
	endpointMix         = "/v1/audio-mixing"
	endpointCombine     = "/v1/combine-videos"
	endpointConcatenate = "/v1/video/concatenate"
	endpointImage       = "/v1/image-to-video"
)

type mixRequest struct {
	ID           string   `json:"id"`
	VideoURL     string   `json:"video_url" validate:"required,url"`
	AudioURL     string   `json:"audio_url" validate:"required,url"`
	VideoVolume  *float64 `json:"video_vol" validate:"omitempty,min=0,max=100"`
	AudioVolume  *float64 `json:"audio_vol" validate:"omitempty,min=0,max=100"`
	OutputLength string   `json:"output_length" validate:"omitempty,oneof=video audio"`
	WebhookURL   string   `json:"webhook_url" validate:"omitempty,url"`
}

type videoItem struct {
	VideoURL string `json:"video_url" validate:"required,url"`
}

type combineRequest struct {
	ID         string      `json:"id"`
	VideoURLs  []videoItem `json:"video_urls" validate:"required,min=1,dive"`
	WebhookURL string      `json:"webhook_url" validate:"omitempty,url"`
}

type imageRequest struct {
	ID         string   `json:"id"`
	ImageURL   string   `json:"image_url" validate:"required,url"`
	Length     *float64 `json:"length" validate:"omitempty,min=1,max=60"`
	FrameRate  *int     `json:"frame_rate" validate:"omitempty,min=15,max=60"`
	ZoomSpeed  *float64 `json:"zoom_speed" validate:"omitempty,min=0,max=100"`
	WebhookURL string   `json:"webhook_url" validate:"omitempty,url"`
}

func (s *Server) handleMix(c *gin.Context) {
	var req mixRequest
	if err := s.bind(c, &req); err != nil {
		reject(c, endpointMix, req.ID, err)
		return
	}
	if s.composer == nil {
		reject(c, endpointMix, req.ID, fmt.Errorf("video composition is not configured"))
		return
	}

	opts := video.DefaultMixOptions()
	if req.VideoVolume != nil {
		opts.VideoVolume = *req.VideoVolume
	}
	if req.AudioVolume != nil {
		opts.AudioVolume = *req.AudioVolume
	}
	if req.OutputLength != "" {
		opts.Length = req.OutputLength
	}

	s.dispatch(c, endpointMix, req.ID, req.WebhookURL, func(ctx context.Context, dir string) (any, error) {
		videoPath, err := s.fetchInto(ctx, req.VideoURL, dir, "video")
		if err != nil {
			return nil, err
		}
		audioPath, err := s.fetchInto(ctx, req.AudioURL, dir, "audio")
		if err != nil {
			return nil, err
		}

		out := filepath.Join(dir, uuid.NewString()+".mp4")
		if err := s.composer.MixAudio(ctx, videoPath, audioPath, out, opts); err != nil {
			return nil, ioError(engine.StageRender, err)
		}
		return s.publish(ctx, out)
	})
}

// handleCombine serves both concatenation routes, which differ only in
// the endpoint they report.
func (s *Server) handleCombine(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req combineRequest
		if err := s.bind(c, &req); err != nil {
			reject(c, endpoint, req.ID, err)
			return
		}
		if s.composer == nil {
			reject(c, endpoint, req.ID, fmt.Errorf("video composition is not configured"))
			return
		}

		s.dispatch(c, endpoint, req.ID, req.WebhookURL, func(ctx context.Context, dir string) (any, error) {
			inputs := make([]string, len(req.VideoURLs))
			for i, item := range req.VideoURLs {
				p, err := s.fetchInto(ctx, item.VideoURL, dir, strconv.Itoa(i))
				if err != nil {
					return nil, err
				}
				inputs[i] = p
			}

			out := filepath.Join(dir, uuid.NewString()+".mp4")
			if err := s.composer.Concatenate(ctx, inputs, out); err != nil {
				return nil, ioError(engine.StageRender, err)
			}
			return s.publish(ctx, out)
		})
	}
}

func (s *Server) handleImage(c *gin.Context) {
	var req imageRequest
	if err := s.bind(c, &req); err != nil {
		reject(c, endpointImage, req.ID, err)
		return
	}
	if s.composer == nil {
		reject(c, endpointImage, req.ID, fmt.Errorf("video composition is not configured"))
		return
	}

	opts := video.DefaultZoomOptions()
	if req.Length != nil {
		opts.Length = *req.Length
	}
	if req.FrameRate != nil {
		opts.FrameRate = *req.FrameRate
	}
	if req.ZoomSpeed != nil {
		opts.ZoomSpeed = *req.ZoomSpeed
	}

	s.dispatch(c, endpointImage, req.ID, req.WebhookURL, func(ctx context.Context, dir string) (any, error) {
		imagePath, err := s.fetchInto(ctx, req.ImageURL, dir, "image")
		if err != nil {
			return nil, err
		}

		out := filepath.Join(dir, uuid.NewString()+".mp4")
		if err := s.composer.ImageToVideo(ctx, imagePath, out, opts); err != nil {
			return nil, ioError(engine.StageRender, err)
		}
		return s.publish(ctx, out)
	})
}

// fetchInto downloads url into its own subdirectory of dir so inputs
// sharing a file name do not collide.
func (s *Server) fetchInto(ctx context.Context, url, dir, name string) (string, error) {
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0755); err != nil {
		return "", ioError(engine.StageDownload, err)
	}
	p, err := s.store.Download(ctx, url, sub)
	if err != nil {
		return "", ioError(engine.StageDownload, fmt.Errorf("%s: %w", name, err))
	}
	return p, nil
}

func (s *Server) publish(ctx context.Context, path string) (any, error) {
	link, err := s.store.Upload(ctx, path)
	if err != nil {
		return nil, ioError(engine.StageUpload, err)
	}
	return gin.H{"file_url": link}, nil
}
