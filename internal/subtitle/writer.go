package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format, one Dialogue line per entry
type ASSWriter struct {
	Title string
	Style StyleOptions
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title: DefaultASSTitle,
			Style: DefaultStyle(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// RenderSRT renders entries as "index\nstart --> end\ntext\n\n" blocks,
// indices starting at 1.
func RenderSRT(sub *Subtitle) string {
	var sb strings.Builder
	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatSRTTimestamp(entry.Start),
			FormatSRTTimestamp(entry.End),
			entry.Text)
	}
	return sb.String()
}

// RenderVTT renders a WebVTT document without cue identifiers.
func RenderVTT(sub *Subtitle) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%s --> %s\n%s\n\n",
			FormatVTTTimestamp(entry.Start),
			FormatVTTTimestamp(entry.End),
			entry.Text)
	}
	return sb.String()
}

func (w *SRTWriter) Render(sub *Subtitle) string {
	return RenderSRT(sub)
}

// writes the subtitle to an SRT file
func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub))
}

func (w *VTTWriter) Render(sub *Subtitle) string {
	return RenderVTT(sub)
}

// writes the subtitle to a VTT file
func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub))
}

func (w *ASSWriter) Render(sub *Subtitle) string {
	var sb strings.Builder
	sb.WriteString(ASSHeader(w.Title, w.Style))
	for _, entry := range sub.Entries {
		writeDialogue(&sb, entry.Start, entry.End, escapeASSText(entry.Text))
	}
	return sb.String()
}

// writes the subtitle to an ASS file
func (w *ASSWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub))
}

func writeFile(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", "\\N")
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	return text
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}
