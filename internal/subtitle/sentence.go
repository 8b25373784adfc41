package subtitle

import (
	"fmt"
	"math"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceTokenizer splits running text into sentences.
type SentenceTokenizer interface {
	Tokenize(text string) []string
}

// PunktTokenizer is the default English sentence tokenizer.
type PunktTokenizer struct {
	tok *sentences.DefaultSentenceTokenizer
}

func NewPunktTokenizer() (*PunktTokenizer, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &PunktTokenizer{tok: tok}, nil
}

func (p *PunktTokenizer) Tokenize(text string) []string {
	var out []string
	for _, s := range p.tok.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SentenceUnit is one sentence of a segment with its share of the
// segment's time span.
type SentenceUnit struct {
	Text     string
	Start    float64
	End      float64
	Duration float64
}

// SplitPair is a sentence cut in two with durations allocated by word
// count. FirstDuration+SecondDuration equals the parent duration rounded
// to two decimals.
type SplitPair struct {
	First          string
	Second         string
	FirstDuration  float64
	SecondDuration float64
}

// Segmenter distributes segment time spans across sentences.
type Segmenter struct {
	tokenizer SentenceTokenizer
}

func NewSegmenter(tokenizer SentenceTokenizer) *Segmenter {
	return &Segmenter{tokenizer: tokenizer}
}

// Split tokenizes seg.Text and gives sentence i the duration
// seg.Duration()*w_i/W. Starts are accumulated forward from seg.Start so
// each sentence begins where the previous one ended.
func (s *Segmenter) Split(seg Segment) []SentenceUnit {
	text := strings.TrimSpace(seg.Text)

	var parts []string
	if text != "" && s.tokenizer != nil {
		parts = s.tokenizer.Tokenize(text)
	}
	if len(parts) == 0 {
		parts = []string{text}
	}

	total := 0
	counts := make([]int, len(parts))
	for i, p := range parts {
		counts[i] = len(strings.Fields(p))
		total += counts[i]
	}

	if total == 0 {
		return []SentenceUnit{{
			Text:     text,
			Start:    seg.Start,
			End:      seg.End,
			Duration: seg.Duration(),
		}}
	}

	span := seg.Duration()
	units := make([]SentenceUnit, len(parts))
	start := seg.Start
	for i, p := range parts {
		dur := span * float64(counts[i]) / float64(total)
		units[i] = SentenceUnit{
			Text:     p,
			Start:    start,
			End:      start + dur,
			Duration: dur,
		}
		start += dur
	}

	return units
}

var splitPunctuation = ",.!?"

// SplitSentence cuts a sentence near its middle word. Words from mid-3 to
// mid+3 are scanned in order and the cut goes after the first one ending in
// one of ",.!?"; otherwise the cut is at mid. This is a heuristic, it does
// not look for the most balanced punctuation break.
func SplitSentence(u SentenceUnit) SplitPair {
	words := strings.Fields(u.Text)
	total := u.Duration

	if len(words) == 0 {
		return SplitPair{FirstDuration: round2(total)}
	}

	mid := len(words) / 2
	best := mid
	lo := max(1, mid-3)
	hi := min(len(words)-1, mid+4)
	for i := lo; i < hi; i++ {
		if strings.ContainsAny(lastByte(words[i]), splitPunctuation) {
			best = i + 1
			break
		}
	}
	if best < 1 {
		best = 1
	}

	ratio := float64(best) / float64(len(words))
	d1 := round2(total * ratio)
	d2 := round2(round2(total) - d1)

	return SplitPair{
		First:          strings.Join(words[:best], " "),
		Second:         strings.Join(words[best:], " "),
		FirstDuration:  d1,
		SecondDuration: d2,
	}
}

func lastByte(s string) string {
	if s == "" {
		return ""
	}
	return s[len(s)-1:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
