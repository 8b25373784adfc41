package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/video"
)

type fakeComposer struct {
	mix    []video.MixOptions
	zoom   []video.ZoomOptions
	inputs [][]string
	err    error
}

func (f *fakeComposer) MixAudio(_ context.Context, videoPath, audioPath, outputPath string, opts video.MixOptions) error {
	f.mix = append(f.mix, opts)
	return f.write(outputPath, videoPath, audioPath)
}

func (f *fakeComposer) Concatenate(_ context.Context, inputs []string, outputPath string) error {
	f.inputs = append(f.inputs, inputs)
	return f.write(outputPath, inputs...)
}

func (f *fakeComposer) ImageToVideo(_ context.Context, imagePath, outputPath string, opts video.ZoomOptions) error {
	f.zoom = append(f.zoom, opts)
	return f.write(outputPath, imagePath)
}

func (f *fakeComposer) write(out string, inputs ...string) error {
	if f.err != nil {
		return f.err
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return err
		}
	}
	return os.WriteFile(out, []byte("composed"), 0644)
}

func fileURL(t *testing.T, resp jobResponse) string {
	t.Helper()
	body, _ := resp.Response.(map[string]any)
	url, _ := body["file_url"].(string)
	if !strings.HasSuffix(url, ".mp4") {
		t.Errorf("file_url = %v", body["file_url"])
	}
	return url
}

func TestAudioMixing(t *testing.T) {
	composer := &fakeComposer{}
	s := New(&fakeRunner{}, &fakeStore{}, WithComposer(composer))

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointMix, map[string]any{
		"video_url":     "https://example.com/clip.mp4",
		"audio_url":     "https://example.com/song.mp3",
		"video_vol":     0,
		"output_length": "audio",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	fileURL(t, resp)

	want := video.MixOptions{VideoVolume: 0, AudioVolume: 100, Length: video.LengthAudio}
	if len(composer.mix) != 1 || composer.mix[0] != want {
		t.Errorf("mix options = %+v, want %+v", composer.mix, want)
	}

	rec, _ = doJSON(t, s.Handler(), http.MethodPost, endpointMix, map[string]any{
		"video_url": "https://example.com/clip.mp4",
		"audio_url": "https://example.com/song.mp3",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if composer.mix[1] != video.DefaultMixOptions() {
		t.Errorf("default mix options = %+v", composer.mix[1])
	}
}

func TestAudioMixingRejectsBadRequests(t *testing.T) {
	s := New(&fakeRunner{}, &fakeStore{}, WithComposer(&fakeComposer{}))

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name:  "missing audio",
			body:  map[string]any{"video_url": "https://example.com/clip.mp4"},
			field: "audio_url",
		},
		{
			name: "volume above range",
			body: map[string]any{
				"video_url": "https://example.com/clip.mp4",
				"audio_url": "https://example.com/song.mp3",
				"audio_vol": 150,
			},
			field: "audio_vol",
		},
		{
			name: "unknown length",
			body: map[string]any{
				"video_url":     "https://example.com/clip.mp4",
				"audio_url":     "https://example.com/song.mp3",
				"output_length": "shortest",
			},
			field: "output_length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointMix, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(resp.Error, tt.field) {
				t.Errorf("error %q does not name %s", resp.Error, tt.field)
			}
		})
	}
}

func TestCombineVideos(t *testing.T) {
	for _, endpoint := range []string{endpointCombine, endpointConcatenate} {
		t.Run(endpoint, func(t *testing.T) {
			store := &fakeStore{}
			composer := &fakeComposer{}
			tempDir := t.TempDir()
			s := New(&fakeRunner{}, store, WithComposer(composer), WithTempDir(tempDir))

			rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpoint, map[string]any{
				"id": "reel-1",
				"video_urls": []map[string]string{
					{"video_url": "https://a.example.com/clip.mp4"},
					{"video_url": "https://b.example.com/clip.mp4"},
				},
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if resp.Endpoint != endpoint || resp.ID != "reel-1" {
				t.Errorf("endpoint/id = %q/%q", resp.Endpoint, resp.ID)
			}
			fileURL(t, resp)

			if len(composer.inputs) != 1 || len(composer.inputs[0]) != 2 {
				t.Fatalf("concatenate inputs = %v", composer.inputs)
			}
			first, second := composer.inputs[0][0], composer.inputs[0][1]
			if first == second {
				t.Errorf("same-named inputs collided at %s", first)
			}
			if filepath.Base(first) != "clip.mp4" || filepath.Base(second) != "clip.mp4" {
				t.Errorf("inputs = %v", composer.inputs[0])
			}

			entries, _ := os.ReadDir(tempDir)
			if len(entries) != 0 {
				t.Errorf("job directory left behind: %d entries", len(entries))
			}
		})
	}
}

func TestCombineVideosFailures(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		s := New(&fakeRunner{}, &fakeStore{}, WithComposer(&fakeComposer{}))
		rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointCombine, map[string]any{
			"video_urls": []map[string]string{},
		})
		if rec.Code != http.StatusBadRequest || !strings.Contains(resp.Error, "video_urls") {
			t.Errorf("status = %d, error = %q", rec.Code, resp.Error)
		}
	})

	t.Run("bad entry", func(t *testing.T) {
		s := New(&fakeRunner{}, &fakeStore{}, WithComposer(&fakeComposer{}))
		rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointCombine, map[string]any{
			"video_urls": []map[string]string{{"video_url": "not a url"}},
		})
		if rec.Code != http.StatusBadRequest || !strings.Contains(resp.Error, "video_url") {
			t.Errorf("status = %d, error = %q", rec.Code, resp.Error)
		}
	})

	t.Run("no composer", func(t *testing.T) {
		s := New(&fakeRunner{}, &fakeStore{})
		rec, _ := doJSON(t, s.Handler(), http.MethodPost, endpointCombine, map[string]any{
			"video_urls": []map[string]string{{"video_url": "https://example.com/a.mp4"}},
		})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("download", func(t *testing.T) {
		store := &fakeStore{failURL: "https://example.com/gone.mp4"}
		s := New(&fakeRunner{}, store, WithComposer(&fakeComposer{}))
		rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointCombine, map[string]any{
			"video_urls": []map[string]string{
				{"video_url": "https://example.com/a.mp4"},
				{"video_url": "https://example.com/gone.mp4"},
			},
		})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if resp.Kind != string(engine.KindIO) || resp.Stage != string(engine.StageDownload) {
			t.Errorf("kind/stage = %q/%q", resp.Kind, resp.Stage)
		}
	})

	t.Run("render", func(t *testing.T) {
		s := New(&fakeRunner{}, &fakeStore{}, WithComposer(&fakeComposer{err: errors.New("codec mismatch")}))
		rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointCombine, map[string]any{
			"video_urls": []map[string]string{{"video_url": "https://example.com/a.mp4"}},
		})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if resp.Stage != string(engine.StageRender) || !strings.Contains(resp.Error, "codec mismatch") {
			t.Errorf("response = %+v", resp)
		}
	})
}

func TestImageToVideo(t *testing.T) {
	composer := &fakeComposer{}
	s := New(&fakeRunner{}, &fakeStore{}, WithComposer(composer))

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointImage, map[string]any{
		"image_url":  "https://example.com/photo.jpg",
		"length":     10,
		"frame_rate": 24,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	fileURL(t, resp)

	want := video.ZoomOptions{Length: 10, FrameRate: 24, ZoomSpeed: 3}
	if len(composer.zoom) != 1 || composer.zoom[0] != want {
		t.Errorf("zoom options = %+v, want %+v", composer.zoom, want)
	}

	for field, value := range map[string]any{"length": 0.5, "frame_rate": 120, "zoom_speed": -1} {
		rec, resp := doJSON(t, s.Handler(), http.MethodPost, endpointImage, map[string]any{
			"image_url": "https://example.com/photo.jpg",
			field:       value,
		})
		if rec.Code != http.StatusBadRequest || !strings.Contains(resp.Error, field) {
			t.Errorf("%s=%v: status = %d, error = %q", field, value, rec.Code, resp.Error)
		}
	}
}
