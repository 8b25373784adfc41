package subtitle

import (
	"math"
	"strings"
	"testing"
)

// splits after every word ending in a period
type periodTokenizer struct{}

func (periodTokenizer) Tokenize(text string) []string {
	var out []string
	var cur []string
	for _, w := range strings.Fields(text) {
		cur = append(cur, w)
		if strings.HasSuffix(w, ".") {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

type emptyTokenizer struct{}

func (emptyTokenizer) Tokenize(string) []string { return nil }

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSegmenterHelloWorld(t *testing.T) {
	tok, err := NewPunktTokenizer()
	if err != nil {
		t.Fatalf("NewPunktTokenizer: %v", err)
	}

	seg := Segment{
		Start: 0.0,
		End:   4.0,
		Text:  "Hello world. This is a test.",
		Words: []Word{
			{Start: 0.0, End: 0.5, Text: "Hello"},
			{Start: 0.5, End: 1.0, Text: "world."},
			{Start: 1.0, End: 1.5, Text: "This"},
			{Start: 1.5, End: 2.0, Text: "is"},
			{Start: 2.0, End: 2.5, Text: "a"},
			{Start: 2.5, End: 4.0, Text: "test."},
		},
	}

	units := NewSegmenter(tok).Split(seg)
	if len(units) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(units), units)
	}

	if units[0].Text != "Hello world." || units[1].Text != "This is a test." {
		t.Errorf("unexpected sentence texts: %q, %q", units[0].Text, units[1].Text)
	}
	if units[0].Start != 0.0 {
		t.Errorf("first start = %v, want 0", units[0].Start)
	}
	if !approx(units[0].Duration, 4.0/3, 1e-9) {
		t.Errorf("first duration = %v, want %v", units[0].Duration, 4.0/3)
	}
	if !approx(units[1].Duration, 8.0/3, 1e-9) {
		t.Errorf("second duration = %v, want %v", units[1].Duration, 8.0/3)
	}
	if units[1].Start != units[0].End {
		t.Errorf("second start %v does not follow first end %v", units[1].Start, units[0].End)
	}
	if !approx(units[1].End, 4.0, 0.01) {
		t.Errorf("last end = %v, want 4.0", units[1].End)
	}
}

func TestSegmenterDurationsSumToSegment(t *testing.T) {
	segments := []Segment{
		{Start: 2.0, End: 9.37, Text: "One. Two words. Three more words. And four words here."},
		{Start: 10.1, End: 10.2, Text: "Short. Very short."},
		{Start: 0, End: 123.456, Text: "A single sentence without a final stop"},
	}

	s := NewSegmenter(periodTokenizer{})
	for _, seg := range segments {
		units := s.Split(seg)
		sum := 0.0
		for i, u := range units {
			sum += u.Duration
			if i > 0 && u.Start != units[i-1].End {
				t.Errorf("unit %d start %v != previous end %v", i, u.Start, units[i-1].End)
			}
		}
		if !approx(sum, seg.Duration(), 0.01) {
			t.Errorf("durations sum to %v, want %v", sum, seg.Duration())
		}
		if units[0].Start != seg.Start {
			t.Errorf("first start %v, want %v", units[0].Start, seg.Start)
		}
		if !approx(units[len(units)-1].End, seg.End, 0.01) {
			t.Errorf("last end %v, want %v", units[len(units)-1].End, seg.End)
		}
	}
}

func TestSegmenterFallbacks(t *testing.T) {
	seg := Segment{Start: 1, End: 3, Text: "no sentence boundaries found"}
	units := NewSegmenter(emptyTokenizer{}).Split(seg)
	if len(units) != 1 || units[0].Text != seg.Text {
		t.Fatalf("expected whole text as one sentence, got %+v", units)
	}
	if units[0].Start != 1 || units[0].End != 3 || units[0].Duration != 2 {
		t.Errorf("unexpected timing %+v", units[0])
	}

	punct := NewSegmenter(periodTokenizer{}).Split(Segment{Start: 0, End: 1, Text: "   "})
	if len(punct) != 1 || punct[0].Duration != 1 {
		t.Errorf("empty text should yield one unit spanning the segment, got %+v", punct)
	}
}

// The split point is a heuristic: the first punctuated word in the
// window wins, even when a later one would balance the halves better.
func TestSplitSentence(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		duration   float64
		wantFirst  string
		wantSecond string
	}{
		{
			name:       "no punctuation splits at midpoint",
			text:       "one two three four five six",
			duration:   3,
			wantFirst:  "one two three",
			wantSecond: "four five six",
		},
		{
			name:       "comma near middle",
			text:       "after the long day at work, we finally went home to rest",
			duration:   6,
			wantFirst:  "after the long day at work,",
			wantSecond: "we finally went home to rest",
		},
		{
			name:       "first punctuated word in window wins",
			text:       "a b c, d e f g. h i j",
			duration:   2,
			wantFirst:  "a b c,",
			wantSecond: "d e f g. h i j",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := SplitSentence(SentenceUnit{Text: tt.text, Duration: tt.duration})
			if pair.First != tt.wantFirst || pair.Second != tt.wantSecond {
				t.Errorf("got (%q, %q), want (%q, %q)", pair.First, pair.Second, tt.wantFirst, tt.wantSecond)
			}
			if round2(pair.FirstDuration+pair.SecondDuration) != round2(tt.duration) {
				t.Errorf("durations %v + %v do not sum to %v", pair.FirstDuration, pair.SecondDuration, tt.duration)
			}
		})
	}
}

func TestSplitSentenceDurationsAlwaysSum(t *testing.T) {
	texts := []string{
		"one",
		"one two",
		"one two three",
		"this, is a sentence with several words in it!",
		"a b c d e f g h i j k l m n o p",
	}
	durations := []float64{0.01, 0.333, 1, 2.005, 7.777, 13.1, 100.999}

	for _, text := range texts {
		for _, d := range durations {
			pair := SplitSentence(SentenceUnit{Text: text, Duration: d})
			if round2(pair.FirstDuration+pair.SecondDuration) != round2(d) {
				t.Errorf("%q/%v: %v + %v != %v", text, d, pair.FirstDuration, pair.SecondDuration, round2(d))
			}
			joined := strings.TrimSpace(pair.First + " " + pair.Second)
			if joined != text {
				t.Errorf("halves %q + %q do not rebuild %q", pair.First, pair.Second, text)
			}
		}
	}
}

func TestSplitSentenceSingleWord(t *testing.T) {
	pair := SplitSentence(SentenceUnit{Text: "Hello", Duration: 1.234})
	if pair.First != "Hello" || pair.Second != "" {
		t.Errorf("got (%q, %q)", pair.First, pair.Second)
	}
	if pair.FirstDuration != 1.23 || pair.SecondDuration != 0 {
		t.Errorf("got durations %v, %v", pair.FirstDuration, pair.SecondDuration)
	}
}
