package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mgpai22/captioner/internal/logging"
)

// deliver posts the job result to url. Failures are logged only.
func (s *Server) deliver(ctx context.Context, url string, payload jobResponse, log *logging.Logger) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorw("Failed to encode webhook payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Errorw("Invalid webhook request", "url", url, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.webhooks.Do(req)
	if err != nil {
		log.Errorw("Webhook delivery failed", "url", url, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		log.Warnw("Webhook rejected", "url", url, "status", resp.StatusCode)
		return
	}
	log.Infow("Webhook delivered", "url", url, "code", payload.Code)
}
