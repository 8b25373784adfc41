package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/mgpai22/captioner/internal/audio"
)

// Fetch downloads rawURL into dir under a fresh name. The extension comes
// from the URL path, then the Content-Type header, then the sniffed
// content.
func Fetch(ctx context.Context, client *http.Client, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: unexpected status %s", resp.Status)
	}

	return saveBody(resp.Body, dir, path.Ext(u.Path), resp.Header.Get("Content-Type"))
}

// saveBody writes r into dir, naming the file with ext or, when ext is
// empty, the extension of contentType or of the detected content.
func saveBody(r io.Reader, dir, ext, contentType string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	tmpPath := f.Name()

	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		if copyErr != nil {
			return "", fmt.Errorf("failed to write download: %w", copyErr)
		}
		return "", fmt.Errorf("failed to write download: %w", closeErr)
	}

	ext = strings.ToLower(ext)
	if ext == "" {
		ext = audio.ExtensionForMIME(contentType)
	}
	if ext == "" {
		if mt, err := mimetype.DetectFile(tmpPath); err == nil {
			ext = mt.Extension()
		}
	}

	final := filepath.Join(dir, uuid.NewString()+ext)
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to name download: %w", err)
	}
	return final, nil
}
