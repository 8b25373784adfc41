package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetch(t *testing.T) {
	pngHeader := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/talk.mp3":
			_, _ = w.Write([]byte("mp3 bytes"))
		case "/image":
			_, _ = w.Write([]byte(pngHeader))
		case "/stream":
			w.Header().Set("Content-Type", "audio/mpeg; charset=binary")
			_, _ = w.Write([]byte("plain bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		path    string
		wantExt string
		content string
	}{
		{"extension from url", "/audio/talk.mp3", ".mp3", "mp3 bytes"},
		{"extension from content", "/image", ".png", pngHeader},
		{"extension from content type header", "/stream", ".mp3", "plain bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			got, err := Fetch(context.Background(), srv.Client(), srv.URL+tt.path, dir)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if filepath.Ext(got) != tt.wantExt {
				t.Errorf("Fetch() path = %q, want extension %q", got, tt.wantExt)
			}
			data, err := os.ReadFile(got)
			if err != nil {
				t.Fatalf("failed to read download: %v", err)
			}
			if string(data) != tt.content {
				t.Errorf("content = %q, want %q", data, tt.content)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("download dir has %d entries, want 1", len(entries))
			}
		})
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"bad status", srv.URL + "/missing.mp3"},
		{"unsupported scheme", "ftp://example.com/a.mp3"},
		{"malformed", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if _, err := Fetch(context.Background(), srv.Client(), tt.url, dir); err == nil {
				t.Fatal("Fetch() expected error")
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("failed fetch left %d files behind", len(entries))
			}
		})
	}
}
