package transcribe

import (
	"context"
	"fmt"

	"github.com/mgpai22/captioner/internal/subtitle"
)

// Recognizer turns a media file into timed text segments. With
// WordTimestamps set every returned segment carries its words.
type Recognizer interface {
	Recognize(ctx context.Context, mediaPath string, opts Options) ([]subtitle.Segment, error)
}

// per call recognition options
type Options struct {
	WordTimestamps bool
	// Language is a hint: an ISO code or an English language name. Empty
	// lets the provider detect it.
	Language string
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// provider construction settings
type Config struct {
	APIKey string
	Model  string
	Prompt string
}

// creates a recognizer for provider
func Factory(ctx context.Context, provider Provider, cfg Config) (Recognizer, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiRecognizer(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
