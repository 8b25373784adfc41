package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/captioner/internal/subtitle"
)

// implements Recognizer using Google Gemini
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	prompt string
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64          `json:"start"`
	End   float64          `json:"end"`
	Text  string           `json:"text"`
	Words []transcriptWord `json:"words,omitempty"`
}

type transcriptWord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Word  string  `json:"word"`
}

func NewGeminiRecognizer(ctx context.Context, cfg Config) (*GeminiRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiRecognizer{
		client: client,
		model:  model,
		prompt: cfg.Prompt,
	}, nil
}

// transcribes a single media file
func (r *GeminiRecognizer) Recognize(ctx context.Context, mediaPath string, opts Options) ([]subtitle.Segment, error) {
	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", mediaPath)
	}

	lang, err := NormalizeLanguage(opts.Language)
	if err != nil {
		return nil, err
	}

	uploadedFile, err := r.client.Files.UploadFromPath(ctx, mediaPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}

	defer func() {
		_, _ = r.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(buildTranscriptionPrompt(lang, r.prompt, opts.WordTimestamps)),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := r.client.Models.GenerateContent(ctx, r.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, err := parseTranscriptionResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
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

// creates the prompt for transcription
func buildTranscriptionPrompt(lang, extra string, words bool) string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if words {
		sb.WriteString("Each object must also contain a 'words' array listing every spoken word in order ")
		sb.WriteString("as objects with 'start', 'end' and 'text' fields, timestamps in seconds. ")
	}

	if lang != "" {
		fmt.Fprintf(&sb, "The audio is in %s. ", LanguageName(lang))
	}

	if extra != "" {
		sb.WriteString(extra)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into segments
func parseTranscriptionResponse(result *genai.GenerateContentResponse) ([]subtitle.Segment, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	responseText := sb.String()
	if responseText == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	transcriptSegments, err := extractTranscriptSegments(cleanJSONResponse(responseText))
	if err != nil {
		return nil, err
	}

	return toSegments(transcriptSegments), nil
}

func toSegments(ts []transcriptSegment) []subtitle.Segment {
	segments := make([]subtitle.Segment, 0, len(ts))
	for _, s := range ts {
		seg := subtitle.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		}
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				text = strings.TrimSpace(w.Word)
			}
			if text == "" {
				continue
			}
			seg.Words = append(seg.Words, subtitle.Word{Start: w.Start, End: w.End, Text: text})
		}
		segments = append(segments, seg)
	}
	return segments
}

// extractTranscriptSegments finds the first JSON value in text that holds
// a usable segment array: a bare array, or one found under any key of a
// (possibly nested) wrapper object. Prose around the JSON is ignored.
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}

		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if segs, ok := segmentsIn(raw); ok {
			return segs, nil
		}
	}

	return nil, fmt.Errorf("no transcript segments found in response: %s", truncateString(text, 200))
}

var preferredKeys = []string{"segments", "transcript", "data"}

func segmentsIn(raw json.RawMessage) ([]transcriptSegment, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	switch raw[0] {
	case '[':
		var segs []transcriptSegment
		if err := json.Unmarshal(raw, &segs); err != nil || !validateSegments(segs) {
			return nil, false
		}
		return segs, true
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		for _, key := range preferredKeys {
			if v, ok := obj[key]; ok {
				if segs, ok := segmentsIn(v); ok {
					return segs, true
				}
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if segs, ok := segmentsIn(obj[k]); ok {
				return segs, true
			}
		}
	}
	return nil, false
}

// a segment list is usable when at least one entry carries any data
func validateSegments(segs []transcriptSegment) bool {
	for _, s := range segs {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

var jsonFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonFenceRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
