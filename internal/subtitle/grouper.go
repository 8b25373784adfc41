package subtitle

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the caption line budget used when none is configured.
const DefaultMaxChars = 56

// Line is a caption line: a non-empty run of words keeping their timing.
type Line struct {
	Words []Word
}

func (l Line) Start() float64 {
	if len(l.Words) == 0 {
		return 0
	}
	return l.Words[0].Start
}

func (l Line) End() float64 {
	if len(l.Words) == 0 {
		return 0
	}
	return l.Words[len(l.Words)-1].End
}

func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = strings.TrimSpace(w.Text)
	}
	return strings.Join(parts, " ")
}

// Group packs words into lines. A positive wordsPerLine selects fixed size
// chunks, otherwise lines are filled up to maxChars.
func Group(words []Word, maxChars, wordsPerLine int) []Line {
	if wordsPerLine > 0 {
		return GroupByCount(words, wordsPerLine)
	}
	return GroupByChars(words, maxChars)
}

// GroupByChars greedily fills lines. Every word costs its length plus one
// separator; a word that would push the line past maxChars starts a new
// line. A single word longer than the budget still gets its own line.
func GroupByChars(words []Word, maxChars int) []Line {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var lines []Line
	var cur []Word
	curLen := 0

	for _, w := range words {
		wl := utf8.RuneCountInString(strings.TrimSpace(w.Text)) + 1
		if len(cur) > 0 && curLen+wl > maxChars {
			lines = append(lines, Line{Words: cur})
			cur = nil
			curLen = 0
		}
		cur = append(cur, w)
		curLen += wl
	}

	if len(cur) > 0 {
		lines = append(lines, Line{Words: cur})
	}

	return lines
}

// GroupByCount splits words into consecutive chunks of n, the last chunk
// holding the remainder.
func GroupByCount(words []Word, n int) []Line {
	if n <= 0 {
		n = 1
	}

	lines := make([]Line, 0, (len(words)+n-1)/n)
	for start := 0; start < len(words); start += n {
		end := min(start+n, len(words))
		chunk := make([]Word, end-start)
		copy(chunk, words[start:end])
		lines = append(lines, Line{Words: chunk})
	}

	return lines
}

// SegmentWords returns the recognized words of seg. When the recognizer
// produced no word timings the text is split on whitespace and the words
// share the segment span evenly.
func SegmentWords(seg Segment) []Word {
	if len(seg.Words) > 0 {
		return seg.Words
	}

	fields := strings.Fields(seg.Text)
	if len(fields) == 0 {
		return nil
	}

	step := seg.Duration() / float64(len(fields))
	words := make([]Word, len(fields))
	for i, f := range fields {
		start := seg.Start + float64(i)*step
		words[i] = Word{Start: start, End: start + step, Text: f}
	}
	words[len(words)-1].End = seg.End

	return words
}

// WordsOf flattens SegmentWords over every segment.
func WordsOf(segments []Segment) []Word {
	var words []Word
	for _, seg := range segments {
		words = append(words, SegmentWords(seg)...)
	}
	return words
}

// LineEntries converts caption lines to subtitle entries.
func LineEntries(lines []Line) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		if len(l.Words) == 0 {
			continue
		}
		entries = append(entries, Entry{
			Index: len(entries) + 1,
			Start: l.Start(),
			End:   l.End(),
			Text:  l.Text(),
		})
	}
	return entries
}
