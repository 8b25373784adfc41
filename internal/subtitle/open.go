package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// parsed subtitle document
type File interface {
	Format() Format
	Subtitle() *Subtitle
	Write(path string) error
}

// Open parses a subtitle file, choosing the parser by extension.
func Open(path string) (File, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		format = FormatSRT
	case ".vtt":
		format = FormatVTT
	case ".ass", ".ssa":
		format = FormatASS
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", filepath.Ext(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	return ParseContent(string(content), format)
}

// ParseContent parses subtitle text in the given format.
func ParseContent(content string, format Format) (File, error) {
	r := strings.NewReader(content)
	switch format {
	case FormatSRT:
		return ParseSRT(r)
	case FormatVTT:
		return ParseVTT(r)
	case FormatASS:
		return ParseASS(r)
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", format)
	}
}

// DetectFormat guesses the format of subtitle text from its first
// significant line.
func DetectFormat(content string) Format {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "WEBVTT"):
			return FormatVTT
		case strings.HasPrefix(line, "[Script Info]"),
			strings.HasPrefix(line, "[V4+ Styles]"),
			strings.HasPrefix(line, "[Events]"),
			strings.HasPrefix(line, "Dialogue:"):
			return FormatASS
		default:
			return FormatSRT
		}
	}
	return FormatSRT
}
