package subtitle

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseStyleOptions(t *testing.T) {
	style, err := ParseStyleOptions(map[string]any{
		"font_name":       "Roboto",
		"font_size":       json.Number("32"),
		"primary_color":   "&H0000FF00",
		"highlight_color": "&H00FF00FF",
		"bold":            true,
		"margin_v":        40.0,
		"outline":         "2.5",
		"shadow":          nil,
	})
	if err != nil {
		t.Fatalf("ParseStyleOptions: %v", err)
	}

	if style.FontName != "Roboto" || style.FontSize != 32 {
		t.Errorf("font = %s %d", style.FontName, style.FontSize)
	}
	if style.Bold != 1 {
		t.Errorf("bold = %d, want 1", style.Bold)
	}
	if style.MarginV != 40 || style.Outline != 2.5 {
		t.Errorf("margin_v = %d, outline = %v", style.MarginV, style.Outline)
	}
	if style.Shadow != DefaultStyle().Shadow {
		t.Errorf("nil value should keep default shadow, got %v", style.Shadow)
	}
	if style.MarginL != 10 || style.Alignment != 2 {
		t.Error("unset options should keep their defaults")
	}
}

func TestParseStyleOptionsRejectsUnknown(t *testing.T) {
	_, err := ParseStyleOptions(map[string]any{
		"font_name":  "Arial",
		"font_color": "red",
		"wobble":     nil,
	})
	if err == nil {
		t.Fatal("expected error for unknown options")
	}
	if !errors.Is(err, ErrUnknownStyleOption) {
		t.Errorf("expected ErrUnknownStyleOption, got %v", err)
	}
	for _, key := range []string{"font_color", "wobble"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name %q: %v", key, err)
		}
	}
}

func TestParseStyleOptionsBadValue(t *testing.T) {
	_, err := ParseStyleOptions(map[string]any{"font_size": "huge"})
	if err == nil {
		t.Fatal("expected error for non numeric font size")
	}
	if errors.Is(err, ErrUnknownStyleOption) {
		t.Error("bad value is not an unknown option")
	}

	if _, err := ParseStyleOptions(map[string]any{"font_name": 12}); err == nil {
		t.Error("expected error for non string font name")
	}
}

func TestParseStyleOptionsRanges(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr bool
	}{
		{"fractional font size", "font_size", 24.7, true},
		{"fractional string font size", "font_size", "24.5", true},
		{"zero font size", "font_size", 0, true},
		{"negative margin", "margin_v", -5, true},
		{"negative margin string", "margin_l", "-1", true},
		{"alignment above numpad", "alignment", 10, true},
		{"bold out of range", "bold", 2, true},
		{"negative outline", "outline", -0.5, true},
		{"negative blur", "blur", -1, true},
		{"not a number", "shadow", "NaN", true},
		{"ass true flag", "bold", -1, false},
		{"whole float", "font_size", 30.0, false},
		{"negative spacing", "spacing", -1.5, false},
		{"negative angle", "angle", -90, false},
		{"zero margin", "margin_r", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStyleOptions(map[string]any{tt.key: tt.value})
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStyleOptions(%s=%v) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestForceStyle(t *testing.T) {
	s := DefaultStyle()
	got := s.ForceStyle()

	if !strings.HasPrefix(got, "FontName=Arial,FontSize=24,PrimaryColour=&H00FFFFFF,") {
		t.Errorf("unexpected prefix: %s", got)
	}
	if strings.Contains(got, "Blur") {
		t.Errorf("Blur must be omitted when unset: %s", got)
	}
	for _, want := range []string{",Bold=0,", ",MarginV=10,", ",BorderStyle=1,", ",Angle=0"} {
		if !strings.Contains(got, want) {
			t.Errorf("default field %q missing: %s", want, got)
		}
	}

	blur := 0.8
	s.Blur = &blur
	s.FontName = ""
	got = s.ForceStyle()
	if !strings.HasSuffix(got, ",Blur=0.8") {
		t.Errorf("expected trailing Blur, got %s", got)
	}
	if strings.Contains(got, "FontName=") {
		t.Errorf("empty font name should be omitted: %s", got)
	}
}

func TestOverrideColor(t *testing.T) {
	tests := map[string]string{
		"&H00FFFFFF": "&HFFFFFF&",
		"&h0000ffff": "&H00FFFF&",
		"&HFF0000":   "&HFF0000&",
		"&H00FF00&":  "&H00FF00&",
	}
	for in, want := range tests {
		if got := overrideColor(in); got != want {
			t.Errorf("overrideColor(%q) = %q, want %q", in, got, want)
		}
	}
}
