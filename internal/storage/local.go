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
)

// LocalStore keeps artifacts in a directory. Returned URLs join BaseURL
// and the object name, or are file:// URLs when BaseURL is empty.
type LocalStore struct {
	dir     string
	baseURL string
	client  *http.Client
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &LocalStore{
		dir:     abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}, nil
}

func (s *LocalStore) Upload(_ context.Context, localPath string) (string, error) {
	name := objectName("", localPath)
	if err := copyFile(localPath, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}
	return s.urlFor(name), nil
}

func (s *LocalStore) urlFor(name string) string {
	if s.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.dir, name))}).String()
	}
	return s.baseURL + "/" + name
}

// Download resolves URLs this store produced straight from disk and
// fetches anything else over HTTP.
func (s *LocalStore) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if src, ok := s.localPath(rawURL); ok {
		dest := filepath.Join(dir, filepath.Base(src))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		if err := copyFile(src, dest); err != nil {
			return "", fmt.Errorf("storage: download: %w", err)
		}
		return dest, nil
	}
	return Fetch(ctx, s.client, rawURL, dir)
}

func (s *LocalStore) localPath(rawURL string) (string, bool) {
	if s.baseURL != "" && strings.HasPrefix(rawURL, s.baseURL+"/") {
		name := path.Clean(strings.TrimPrefix(rawURL, s.baseURL+"/"))
		if name == "." || strings.HasPrefix(name, "..") || strings.Contains(name, "/") {
			return "", false
		}
		return filepath.Join(s.dir, name), true
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	p := filepath.FromSlash(u.Path)
	if filepath.Dir(p) != s.dir {
		return "", false
	}
	return p, true
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
