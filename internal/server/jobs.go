package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/logging"
)

// jobResponse is both the HTTP body and the webhook payload.
type jobResponse struct {
	Endpoint string `json:"endpoint"`
	Code     int    `json:"code"`
	ID       string `json:"id,omitempty"`
	JobID    string `json:"job_id"`
	Response any    `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`

	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// jobFunc does the work of one request inside the private directory dir.
type jobFunc func(ctx context.Context, dir string) (any, error)

func jobIDFor(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// dispatch runs fn synchronously, or in the background with the result
// posted to webhookURL when one is given.
func (s *Server) dispatch(c *gin.Context, endpoint, id, webhookURL string, fn jobFunc) {
	jobID := jobIDFor(id)
	log := s.logger.With("job_id", jobID, "endpoint", endpoint)

	if webhookURL == "" {
		resp := s.execute(c.Request.Context(), endpoint, id, jobID, fn, log)
		c.JSON(resp.Code, resp)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		resp := s.execute(ctx, endpoint, id, jobID, fn, log)
		s.deliver(ctx, webhookURL, resp, log)
	}()

	log.Infow("Job queued", "webhook_url", webhookURL)
	c.JSON(http.StatusAccepted, jobResponse{
		Endpoint: endpoint,
		Code:     http.StatusAccepted,
		ID:       id,
		JobID:    jobID,
		Message:  "processing",
	})
}

func (s *Server) execute(ctx context.Context, endpoint, id, jobID string, fn jobFunc, log *logging.Logger) jobResponse {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.tempDir != "" {
		if err := os.MkdirAll(s.tempDir, 0755); err != nil {
			return failure(endpoint, id, jobID, err)
		}
	}
	dir, err := os.MkdirTemp(s.tempDir, "captioner-req-*")
	if err != nil {
		return failure(endpoint, id, jobID, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warnw("Failed to remove job directory", "dir", dir, "error", err)
		}
	}()

	log.Infow("Job started")
	out, err := fn(ctx, dir)
	if err != nil {
		log.Errorw("Job failed", "error", err)
		return failure(endpoint, id, jobID, err)
	}
	log.Infow("Job finished")

	return jobResponse{
		Endpoint: endpoint,
		Code:     http.StatusOK,
		ID:       id,
		JobID:    jobID,
		Response: out,
		Message:  "success",
	}
}

func failure(endpoint, id, jobID string, err error) jobResponse {
	resp := jobResponse{
		Endpoint: endpoint,
		Code:     statusFor(err),
		ID:       id,
		JobID:    jobID,
		Error:    err.Error(),
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		resp.Kind = string(ee.Kind)
		resp.Stage = string(ee.Stage)
	}
	return resp
}

func statusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) || errors.Is(err, engine.ErrInvalidOutputKind) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// reject answers a request that failed before any job was started.
func reject(c *gin.Context, endpoint, id string, err error) {
	resp := failure(endpoint, id, jobIDFor(id), err)
	c.JSON(resp.Code, resp)
}
