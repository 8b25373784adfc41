package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mgpai22/captioner/internal/subtitle"
)

// OutputKind selects what a run produces.
type OutputKind string

const (
	OutputTranscript OutputKind = "transcript"
	OutputSRT        OutputKind = "srt"
	OutputVTT        OutputKind = "vtt"
	OutputASS        OutputKind = "ass"
)

func (k OutputKind) Valid() bool {
	switch k {
	case OutputTranscript, OutputSRT, OutputVTT, OutputASS:
		return true
	default:
		return false
	}
}

// ParseOutputKind maps a caller supplied name onto an OutputKind.
func ParseOutputKind(name string) (OutputKind, error) {
	k := OutputKind(strings.ToLower(strings.TrimSpace(name)))
	if !k.Valid() {
		return "", wrap(KindInvalidOutput, StageValidate, "",
			fmt.Errorf("unsupported output %q, must be one of transcript, srt, vtt, ass", name))
	}
	return k, nil
}

// Request describes one run.
type Request struct {
	// Media is a local path or a URL understood by the blob store.
	Media  string
	Output OutputKind

	// WordsPerCaption regroups captions into fixed word counts when > 0.
	WordsPerCaption int
	MaxChars        int
	Language        string

	// Style defaults to subtitle.DefaultStyle when nil.
	Style *subtitle.StyleOptions

	// SentenceLevel emits one srt/vtt cue per sentence instead of per
	// segment.
	SentenceLevel bool
}

// Result holds every field a run produced. Which fields are set depends
// on the output kind.
type Result struct {
	Output OutputKind `json:"output"`

	Transcript            string   `json:"transcript,omitempty"`
	Timestamps            []string `json:"timestamps,omitempty"`
	TextSegments          []string `json:"text_segments,omitempty"`
	DurationSentences     []string `json:"duration_sentences,omitempty"`
	DurationSplitSentence []string `json:"duration_splitsentence,omitempty"`
	SplitSentences        []string `json:"split_sentences,omitempty"`

	SRT string `json:"srt_format,omitempty"`
	VTT string `json:"vtt_format,omitempty"`
	ASS string `json:"ass_format,omitempty"`

	FileURL    string `json:"file_url,omitempty"`
	ASSFileURL string `json:"ass_file_url,omitempty"`

	// Warnings lists auxiliary artifacts that could not be produced.
	Warnings []string `json:"warnings,omitempty"`
}

// formatDuration renders a duration rounded to two decimals in its
// shortest form ("1.5", "2.67", "4").
func formatDuration(d float64) string {
	return strconv.FormatFloat(roundTo2(d), 'f', -1, 64)
}
