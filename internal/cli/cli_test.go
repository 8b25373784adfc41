package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/captioner/internal/engine"
	"github.com/mgpai22/captioner/internal/subtitle"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input    string
		explicit string
		ext      string
		want     string
	}{
		{"talk.mp4", "", ".srt", "talk.srt"},
		{"dir/talk.final.mp4", "", ".ass", "dir/talk.final.ass"},
		{"talk.mp4", "out/captions.vtt", ".vtt", "out/captions.vtt"},
		{"https://example.com/media/clip.mp4?x=1", "", ".vtt", "clip.vtt"},
		{"https://example.com/", "", ".srt", "output.srt"},
		{"noext", "", ".txt", "noext.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := outputPath(tt.input, tt.explicit, tt.ext); got != tt.want {
				t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.input, tt.explicit, tt.ext, got, tt.want)
			}
		})
	}
}

func TestStyleFromFlags(t *testing.T) {
	style, err := styleFromFlags(nil)
	if err != nil || style != nil {
		t.Errorf("styleFromFlags(nil) = %v, %v, want nil, nil", style, err)
	}

	style, err = styleFromFlags(map[string]string{"font_name": "Roboto", "font_size": "32", "blur": "0.5"})
	if err != nil {
		t.Fatalf("styleFromFlags() error = %v", err)
	}
	if style.FontName != "Roboto" || style.FontSize != 32 || style.Blur == nil || *style.Blur != 0.5 {
		t.Errorf("styleFromFlags() = %+v", style)
	}
	if style.MarginV != 10 {
		t.Errorf("unset options should keep defaults, MarginV = %d", style.MarginV)
	}

	if _, err := styleFromFlags(map[string]string{"glow": "1"}); err == nil {
		t.Error("styleFromFlags() expected error for unknown option")
	}
	if _, err := styleFromFlags(map[string]string{"font_size": "big"}); err == nil {
		t.Error("styleFromFlags() expected error for non numeric size")
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.mp4", true},
		{"http://example.com/a.mp4", true},
		{"s3://bucket/a.mp4", true},
		{"talk.mp4", false},
		{"/abs/talk.mp4", false},
		{"C:\\media\\talk.mp4", false},
	}
	for _, tt := range tests {
		if got := isURL(tt.in); got != tt.want {
			t.Errorf("isURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "talk.mp4")

	res := &engine.Result{
		Output:     engine.OutputTranscript,
		Transcript: "00:00:00.000 - 00:00:01.000: Hi.",
		SRT:        "1\n00:00:00,000 --> 00:00:01,000\nHi.\n\n",
		ASS:        "[Script Info]\n",
	}
	paths, err := writeResult(res, media, "")
	if err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}

	want := map[string]string{
		filepath.Join(dir, "talk.txt"): res.Transcript + "\n",
		filepath.Join(dir, "talk.srt"): res.SRT,
		filepath.Join(dir, "talk.ass"): res.ASS,
	}
	if len(paths) != len(want) {
		t.Fatalf("wrote %v", paths)
	}
	for p, content := range want {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("missing %s: %v", p, err)
			continue
		}
		if string(data) != content {
			t.Errorf("%s = %q, want %q", p, data, content)
		}
	}

	vtt := &engine.Result{Output: engine.OutputVTT, VTT: "WEBVTT\n\n"}
	explicit := filepath.Join(dir, "nested", "out.vtt")
	if _, err := writeResult(vtt, media, explicit); err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}
	if data, _ := os.ReadFile(explicit); string(data) != "WEBVTT\n\n" {
		t.Errorf("explicit output = %q", data)
	}
}

func TestWriteResultTranscriptExplicitName(t *testing.T) {
	dir := t.TempDir()
	res := &engine.Result{
		Output:     engine.OutputTranscript,
		Transcript: "TRANSCRIPT",
		SRT:        "SRTBODY",
		ASS:        "ASSBODY",
	}

	tests := []struct {
		name     string
		explicit string
		stem     string
	}{
		{"srt extension", filepath.Join(dir, "a", "talk.srt"), filepath.Join(dir, "a", "talk")},
		{"txt extension", filepath.Join(dir, "b", "talk.txt"), filepath.Join(dir, "b", "talk")},
		{"no extension", filepath.Join(dir, "c", "talk"), filepath.Join(dir, "c", "talk")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := writeResult(res, "talk.mp4", tt.explicit)
			if err != nil {
				t.Fatalf("writeResult() error = %v", err)
			}

			want := map[string]string{
				tt.stem + ".txt": "TRANSCRIPT\n",
				tt.stem + ".srt": "SRTBODY",
				tt.stem + ".ass": "ASSBODY",
			}
			seen := make(map[string]bool)
			for _, p := range paths {
				if seen[p] {
					t.Errorf("path %s written twice", p)
				}
				seen[p] = true
			}
			for p, content := range want {
				data, err := os.ReadFile(p)
				if err != nil {
					t.Errorf("missing %s: %v", p, err)
					continue
				}
				if string(data) != content {
					t.Errorf("%s = %q, want %q", p, data, content)
				}
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"transcribe", "caption", "convert", "to-mp3", "serve"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestConvertTarget(t *testing.T) {
	tests := []struct {
		to      string
		output  string
		want    subtitle.Format
		wantErr bool
	}{
		{"vtt", "", subtitle.FormatVTT, false},
		{"WebVTT", "out.srt", subtitle.FormatVTT, false},
		{"", "out.ass", subtitle.FormatASS, false},
		{"", "out.srt", subtitle.FormatSRT, false},
		{"sbv", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		got, err := convertTarget(tt.to, tt.output)
		if (err != nil) != tt.wantErr {
			t.Errorf("convertTarget(%q, %q) error = %v, wantErr %v", tt.to, tt.output, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("convertTarget(%q, %q) = %q, want %q", tt.to, tt.output, got, tt.want)
		}
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "talk.srt")
	srt := "1\n00:00:01,000 --> 00:00:02,500\nHello there\n\n2\n00:00:02,500 --> 00:00:04,000\nGeneral {Kenobi}\n\n"
	if err := os.WriteFile(in, []byte(srt), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("srt to vtt", func(t *testing.T) {
		out := filepath.Join(dir, "talk.vtt")
		n, err := convertFile(in, out, subtitle.FormatVTT, nil)
		if err != nil {
			t.Fatalf("convertFile() error = %v", err)
		}
		if n != 2 {
			t.Errorf("entries = %d, want 2", n)
		}
		want := "WEBVTT\n\n00:00:01.000 --> 00:00:02.500\nHello there\n\n00:00:02.500 --> 00:00:04.000\nGeneral {Kenobi}\n\n"
		if data, _ := os.ReadFile(out); string(data) != want {
			t.Errorf("vtt = %q, want %q", data, want)
		}
	})

	t.Run("srt to styled ass", func(t *testing.T) {
		style, err := styleFromFlags(map[string]string{"font_size": "40"})
		if err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(dir, "styled", "talk.ass")
		if _, err := convertFile(in, out, subtitle.FormatASS, style); err != nil {
			t.Fatalf("convertFile() error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		got := string(data)
		for _, want := range []string{
			"Style: Default,Arial,40,",
			"Dialogue: 0,0:00:01.00,0:00:02.50,Default,,0,0,0,,Hello there\n",
			"Dialogue: 0,0:00:02.50,0:00:04.00,Default,,0,0,0,,General (Kenobi)\n",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("ass output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("refuses to overwrite input", func(t *testing.T) {
		if _, err := convertFile(in, in, subtitle.FormatSRT, nil); err == nil {
			t.Fatal("convertFile() expected error")
		}
	})

	t.Run("unsupported input", func(t *testing.T) {
		bad := filepath.Join(dir, "talk.sub")
		if err := os.WriteFile(bad, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := convertFile(bad, filepath.Join(dir, "x.srt"), subtitle.FormatSRT, nil); err == nil {
			t.Fatal("convertFile() expected error")
		}
	})
}
