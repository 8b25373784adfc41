package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// parsed Dialogue line with all fields
type ASSDialogue struct {
	FieldsBefore    []string
	Text            string
	LeadingTags     string
	TextWithoutTags string
}

// parsed ASS/SSA document. Everything before [Events] is kept verbatim so
// a rewrite preserves styles.
type ASSFile struct {
	preEventsLines        []string
	formatColumns         []string
	textColumnIndex       int
	dialogues             []ASSDialogue
	nonDialogueEventLines []string
	hasStyles             bool
}

var defaultEventColumns = []string{
	"Layer", "Start", "End", "Style", "Name",
	"MarginL", "MarginR", "MarginV", "Effect", "Text",
}

// ParseASS reads an ASS document. Input consisting only of Dialogue lines
// is accepted; the standard Events format is assumed for it.
func ParseASS(r io.Reader) (*ASSFile, error) {
	assFile := &ASSFile{textColumnIndex: -1}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inEventsSection := false
	sawSection := false
	lineNum := 0

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		trimmedLine := strings.TrimSpace(line)

		if strings.HasPrefix(trimmedLine, "[") &&
			strings.HasSuffix(trimmedLine, "]") {
			sawSection = true
			sectionName := strings.ToLower(
				strings.TrimSuffix(strings.TrimPrefix(trimmedLine, "["), "]"),
			)
			if strings.Contains(sectionName, "styles") {
				assFile.hasStyles = true
			}
			inEventsSection = sectionName == "events"
			if !inEventsSection {
				assFile.preEventsLines = append(assFile.preEventsLines, line)
			}
			continue
		}

		if !inEventsSection && sawSection {
			assFile.preEventsLines = append(assFile.preEventsLines, line)
			continue
		}

		if strings.HasPrefix(trimmedLine, "Format:") {
			columns := strings.Split(strings.TrimPrefix(trimmedLine, "Format:"), ",")
			for i, col := range columns {
				columns[i] = strings.TrimSpace(col)
			}
			if err := assFile.setColumns(columns); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(trimmedLine, "Dialogue:") {
			if assFile.formatColumns == nil {
				if err := assFile.setColumns(defaultEventColumns); err != nil {
					return nil, err
				}
			}
			dialogue, err := assFile.parseDialogueLine(trimmedLine)
			if err != nil {
				return nil, fmt.Errorf(
					"failed to parse Dialogue at line %d: %w",
					lineNum,
					err,
				)
			}
			assFile.dialogues = append(assFile.dialogues, dialogue)
			continue
		}

		if trimmedLine != "" {
			assFile.nonDialogueEventLines = append(
				assFile.nonDialogueEventLines,
				line,
			)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASS: %w", err)
	}

	if assFile.formatColumns == nil {
		return nil, fmt.Errorf("ASS input has neither an Events format line nor Dialogue lines")
	}

	return assFile, nil
}

func (f *ASSFile) setColumns(columns []string) error {
	f.formatColumns = columns
	f.textColumnIndex = -1
	for i, col := range columns {
		if strings.EqualFold(col, "Text") {
			f.textColumnIndex = i
			break
		}
	}
	if f.textColumnIndex == -1 {
		return fmt.Errorf("ASS Format line is missing the Text column")
	}
	return nil
}

func (f *ASSFile) parseDialogueLine(line string) (ASSDialogue, error) {
	var dialogue ASSDialogue

	content := strings.TrimSpace(strings.TrimPrefix(line, "Dialogue:"))

	numColumns := len(f.formatColumns)
	parts := splitASSFields(content, numColumns)
	if len(parts) < numColumns {
		return dialogue, fmt.Errorf(
			"expected %d fields, got %d",
			numColumns,
			len(parts),
		)
	}

	dialogue.FieldsBefore = parts[:f.textColumnIndex]
	dialogue.Text = parts[f.textColumnIndex]
	dialogue.LeadingTags, dialogue.TextWithoutTags = extractLeadingTags(dialogue.Text)

	return dialogue, nil
}

// splits on commas, the last field keeps any remaining commas
func splitASSFields(content string, numFields int) []string {
	if numFields <= 0 {
		return nil
	}
	return strings.SplitN(content, ",", numFields)
}

var leadingTagRegex = regexp.MustCompile(`^(\{[^}]*\})+`)

func extractLeadingTags(text string) (string, string) {
	match := leadingTagRegex.FindString(text)
	if match == "" {
		return "", text
	}
	return match, text[len(match):]
}

func (f *ASSFile) Format() Format {
	return FormatASS
}

// HasStyles reports whether the document carries its own style section.
func (f *ASSFile) HasStyles() bool {
	return f.hasStyles
}

// Dialogues returns the parsed Dialogue lines in document order.
func (f *ASSFile) Dialogues() []ASSDialogue {
	return f.dialogues
}

// ApplyStyle replaces everything before [Events] with a generated header
// carrying style. Events are kept as parsed.
func (f *ASSFile) ApplyStyle(title string, style StyleOptions) {
	header := ASSHeader(title, style)
	pre, _, _ := strings.Cut(header, "[Events]\n")
	f.preEventsLines = strings.Split(strings.TrimRight(pre, "\n"), "\n")
	f.preEventsLines = append(f.preEventsLines, "")
	f.hasStyles = true
}

func (f *ASSFile) Subtitle() *Subtitle {
	entries := make([]Entry, len(f.dialogues))

	startIdx, endIdx := -1, -1
	for i, col := range f.formatColumns {
		switch strings.ToLower(col) {
		case "start":
			startIdx = i
		case "end":
			endIdx = i
		}
	}

	for i, d := range f.dialogues {
		var start, end float64
		if startIdx >= 0 && startIdx < len(d.FieldsBefore) {
			start, _ = ParseASSTimestamp(d.FieldsBefore[startIdx])
		}
		if endIdx >= 0 && endIdx < len(d.FieldsBefore) {
			end, _ = ParseASSTimestamp(d.FieldsBefore[endIdx])
		}
		text := strings.ReplaceAll(d.Text, "\\N", "\n")
		text = strings.ReplaceAll(text, "\\n", "\n")

		entries[i] = Entry{
			Index: i + 1,
			Start: start,
			End:   end,
			Text:  text,
		}
	}

	return &Subtitle{
		Entries: entries,
		Format:  string(FormatASS),
	}
}

// Render serializes the document back to ASS text.
func (f *ASSFile) Render() string {
	var sb strings.Builder
	for _, line := range f.preEventsLines {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: " + strings.Join(f.formatColumns, ", ") + "\n")
	for _, d := range f.dialogues {
		sb.WriteString(f.buildDialogueLine(d) + "\n")
	}
	for _, line := range f.nonDialogueEventLines {
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (f *ASSFile) Write(path string) error {
	return writeFile(path, f.Render())
}

func (f *ASSFile) buildDialogueLine(d ASSDialogue) string {
	allFields := make([]string, len(f.formatColumns))
	copy(allFields, d.FieldsBefore)
	allFields[f.textColumnIndex] = d.Text

	return "Dialogue: " + strings.Join(allFields, ",")
}
