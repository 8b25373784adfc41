package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/captioner/internal/config"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestLocalStoreUploadWithBaseURL(t *testing.T) {
	storeDir := t.TempDir()
	store, err := NewLocalStore(storeDir, "http://cdn.example.com/files/")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	src := writeTestFile(t, t.TempDir(), "captions.ASS", "[Script Info]\n")
	url, err := store.Upload(context.Background(), src)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !strings.HasPrefix(url, "http://cdn.example.com/files/") {
		t.Errorf("Upload() url = %q, want base url prefix", url)
	}
	if !strings.HasSuffix(url, ".ass") {
		t.Errorf("Upload() url = %q, want lower-cased .ass extension", url)
	}

	name := strings.TrimPrefix(url, "http://cdn.example.com/files/")
	data, err := os.ReadFile(filepath.Join(storeDir, name))
	if err != nil {
		t.Fatalf("uploaded object missing: %v", err)
	}
	if string(data) != "[Script Info]\n" {
		t.Errorf("uploaded content = %q", data)
	}
}

func TestLocalStoreUploadNamesAreUnique(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	src := writeTestFile(t, t.TempDir(), "a.srt", "x")

	first, err := store.Upload(context.Background(), src)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	second, err := store.Upload(context.Background(), src)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if first == second {
		t.Errorf("two uploads returned the same url %q", first)
	}
	if !strings.HasPrefix(first, "file://") {
		t.Errorf("Upload() url = %q, want file:// url without base url", first)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"file url", ""},
		{"base url", "https://media.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewLocalStore(t.TempDir(), tt.baseURL)
			if err != nil {
				t.Fatalf("NewLocalStore() error = %v", err)
			}
			src := writeTestFile(t, t.TempDir(), "clip.vtt", "WEBVTT\n\n")

			url, err := store.Upload(context.Background(), src)
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}

			dest := t.TempDir()
			got, err := store.Download(context.Background(), url, dest)
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if filepath.Dir(got) != dest {
				t.Errorf("Download() path = %q, want inside %q", got, dest)
			}
			data, err := os.ReadFile(got)
			if err != nil {
				t.Fatalf("failed to read download: %v", err)
			}
			if string(data) != "WEBVTT\n\n" {
				t.Errorf("downloaded content = %q", data)
			}
		})
	}
}

func TestLocalStoreUploadMissingFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	if _, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.srt")); err == nil {
		t.Error("Upload() expected error for missing file")
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix     string
		path       string
		wantPrefix string
		wantSuffix string
	}{
		{"", "/tmp/a.mp3", "", ".mp3"},
		{"captions", "/tmp/a.ass", "captions/", ".ass"},
		{"/captions/", "b.SRT", "captions/", ".srt"},
	}

	for _, tt := range tests {
		got := objectName(tt.prefix, tt.path)
		if !strings.HasPrefix(got, tt.wantPrefix) || !strings.HasSuffix(got, tt.wantSuffix) {
			t.Errorf("objectName(%q, %q) = %q", tt.prefix, tt.path, got)
		}
		if strings.Contains(strings.TrimPrefix(got, tt.wantPrefix), "/") {
			t.Errorf("objectName(%q, %q) = %q has nested path", tt.prefix, tt.path, got)
		}
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Provider: "ftp"})
	if err == nil {
		t.Fatal("New() expected error for unsupported provider")
	}
}

func TestNewLocalProvider(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Provider: "local", LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("New() = %T, want *LocalStore", store)
	}
}
