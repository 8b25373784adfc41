package subtitle

import (
	"fmt"
	"strings"
)

const (
	DefaultASSTitle = "Highlight Current Word"

	assStyleName   = "Default"
	assStyleFormat = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"
	assEventFormat = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"
)

// ASSEvent is one Dialogue line of the highlight track.
type ASSEvent struct {
	Start float64
	End   float64
	Text  string
}

// ASSHeader renders the Script Info, V4+ Styles and Events sections up to
// and including the Events format line.
func ASSHeader(title string, style StyleOptions) string {
	if title == "" {
		title = DefaultASSTitle
	}

	var sb strings.Builder
	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString(assStyleFormat + "\n")
	sb.WriteString(style.StyleLine(assStyleName) + "\n\n")

	sb.WriteString("[Events]\n")
	sb.WriteString(assEventFormat + "\n")
	return sb.String()
}

// HighlightEvents emits one event per word of line. Event i runs from the
// start of word i to the start of word i+1 (the line end for the last
// word), so the events of a line are contiguous and cover
// [line.Start(), line.End()].
func HighlightEvents(line Line, style StyleOptions) []ASSEvent {
	n := len(line.Words)
	if n == 0 {
		return nil
	}

	base := fmt.Sprintf("{\\c%s}", overrideColor(style.PrimaryColor))
	highlight := fmt.Sprintf("{\\c%s}", overrideColor(style.HighlightColor))

	texts := make([]string, n)
	for i, w := range line.Words {
		texts[i] = escapeASSText(strings.TrimSpace(w.Text))
	}

	events := make([]ASSEvent, n)
	for i, w := range line.Words {
		end := line.End()
		if i < n-1 {
			end = line.Words[i+1].Start
		}

		parts := make([]string, n)
		for j, t := range texts {
			if j == i {
				parts[j] = highlight + t
			} else {
				parts[j] = base + t
			}
		}

		events[i] = ASSEvent{
			Start: w.Start,
			End:   end,
			Text:  strings.Join(parts, " "),
		}
	}

	return events
}

// RenderASS renders the moving word highlight track for lines.
func RenderASS(lines []Line, title string, style StyleOptions) string {
	var sb strings.Builder
	sb.WriteString(ASSHeader(title, style))
	for _, line := range lines {
		for _, ev := range HighlightEvents(line, style) {
			writeDialogue(&sb, ev.Start, ev.End, ev.Text)
		}
	}
	return sb.String()
}

func writeDialogue(sb *strings.Builder, start, end float64, text string) {
	fmt.Fprintf(sb, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
		FormatASSTimestamp(start),
		FormatASSTimestamp(end),
		assStyleName,
		text)
}
