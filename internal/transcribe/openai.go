package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/captioner/internal/audio"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// implements Recognizer using the OpenAI Audio API
type OpenAIRecognizer struct {
	client openai.Client
	model  string
	prompt string
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Words    []whisperWord    `json:"words"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAIRecognizer(cfg Config, opts ...option.RequestOption) (*OpenAIRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAIRecognizer{
		client: client,
		model:  model,
		prompt: cfg.Prompt,
	}, nil
}

// transcribes a single media file
func (r *OpenAIRecognizer) Recognize(
	ctx context.Context,
	mediaPath string,
	opts Options,
) ([]subtitle.Segment, error) {
	file, err := os.Open(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	granularities := []string{"segment"}
	if opts.WordTimestamps {
		granularities = append(granularities, "word")
	}

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(r.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: granularities,
	}

	lang, err := NormalizeLanguage(opts.Language)
	if err != nil {
		return nil, err
	}
	if lang != "" {
		params.Language = openai.String(lang)
	}
	if r.prompt != "" {
		params.Prompt = openai.String(r.prompt)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, err := parseVerboseJSONResponse(resp.RawJSON(), 0)
	if err != nil {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, fmt.Errorf("undecodable transcription response: %w", err)
		}
		duration, _ := audio.GetDuration(ctx, mediaPath)
		segments = []subtitle.Segment{{Start: 0, End: duration, Text: text}}
	}

	if opts.WordTimestamps {
		for i := range segments {
			if len(segments[i].Words) == 0 {
				segments[i].Words = subtitle.SegmentWords(segments[i])
			}
		}
	}

	return segments, nil
}

func parseVerboseJSONResponse(rawJSON string, fallbackDuration float64) ([]subtitle.Segment, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	words := make([]subtitle.Word, 0, len(verboseResp.Words))
	for _, w := range verboseResp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		words = append(words, subtitle.Word{Start: w.Start, End: w.End, Text: text})
	}

	if len(verboseResp.Segments) == 0 {
		if verboseResp.Text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		dur := fallbackDuration
		if verboseResp.Duration > 0 {
			dur = verboseResp.Duration
		}
		seg := subtitle.Segment{
			Start: 0,
			End:   dur,
			Text:  strings.TrimSpace(verboseResp.Text),
			Words: words,
		}
		if len(words) > 0 {
			seg.Start = words[0].Start
			seg.End = max(dur, words[len(words)-1].End)
		}
		return []subtitle.Segment{seg}, nil
	}

	segments := make([]subtitle.Segment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, subtitle.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}

	assignWords(segments, words)
	return segments, nil
}

// assignWords hands each word to the last segment starting at or before
// the word's midpoint. Words before the first segment go to the first.
func assignWords(segments []subtitle.Segment, words []subtitle.Word) {
	if len(segments) == 0 {
		return
	}
	si := 0
	for _, w := range words {
		mid := (w.Start + w.End) / 2
		for si+1 < len(segments) && segments[si+1].Start <= mid {
			si++
		}
		segments[si].Words = append(segments[si].Words, w)
	}
}
