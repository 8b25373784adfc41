package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// workspace is the private temp directory of one run. Every file a run
// creates lives here and goes away with cleanup.
type workspace struct {
	dir string
}

func newWorkspace(base string) (*workspace, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, "captioner-job-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

// path returns a fresh uniquely named path with ext.
func (w *workspace) path(ext string) string {
	return filepath.Join(w.dir, uuid.NewString()+ext)
}

func (w *workspace) write(ext, content string) (string, error) {
	p := w.path(ext)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(p), err)
	}
	return p, nil
}

func (w *workspace) cleanup() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.dir, err)
	}
	return nil
}
