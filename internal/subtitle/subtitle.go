package subtitle

import (
	"fmt"
	"strings"
)

// single timed subtitle cue, times in seconds
type Entry struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// ParseFormat maps a user supplied name onto a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "ass", "ssa":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %q", name)
	}
}

// Segment is one recognizer-produced span of speech. Words is only
// populated when word level timestamps were requested.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Word is a single recognized word with its own timing.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// interface for writing subtitles to files
type Writer interface {
	Render(sub *Subtitle) string
	Write(sub *Subtitle, path string) error
}

// interface for parsing subtitle files
type Parser interface {
	Parse(path string) (*Subtitle, error)
}

// EntriesFromSegments produces one entry per non-empty segment.
func EntriesFromSegments(segments []Segment) []Entry {
	entries := make([]Entry, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		entries = append(entries, Entry{
			Index: len(entries) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return entries
}

// AllWords flattens the word timings of every segment in order.
func AllWords(segments []Segment) []Word {
	var words []Word
	for _, seg := range segments {
		words = append(words, seg.Words...)
	}
	return words
}

// HasWordTimings reports whether any segment carries word timestamps.
func HasWordTimings(segments []Segment) bool {
	for _, seg := range segments {
		if len(seg.Words) > 0 {
			return true
		}
	}
	return false
}
