package subtitle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownStyleOption is returned for option names the renderer does not
// understand. Unknown options are rejected rather than passed through.
var ErrUnknownStyleOption = errors.New("unknown style option")

// StyleOptions describes the single ASS style used for generated captions
// and the force_style override applied when burning SRT captions.
type StyleOptions struct {
	FontName       string
	FontSize       int
	PrimaryColor   string
	SecondaryColor string
	OutlineColor   string
	BackColor      string
	// HighlightColor is used for the active word in highlight mode.
	HighlightColor string
	Bold           int
	Italic         int
	Underline      int
	StrikeOut      int
	ScaleX         int
	ScaleY         int
	Spacing        float64
	Angle          float64
	BorderStyle    int
	Outline        float64
	Shadow         float64
	Alignment      int
	MarginL        int
	MarginR        int
	MarginV        int
	Encoding       int
	// Blur has no default and is left out of style strings when nil.
	Blur *float64
}

// DefaultStyle is white Arial 24 with a black outline, bottom centre,
// 10px margins.
func DefaultStyle() StyleOptions {
	return StyleOptions{
		FontName:       "Arial",
		FontSize:       24,
		PrimaryColor:   "&H00FFFFFF",
		SecondaryColor: "&H000000FF",
		OutlineColor:   "&H00000000",
		BackColor:      "&H00000000",
		HighlightColor: "&H0000FFFF",
		ScaleX:         100,
		ScaleY:         100,
		BorderStyle:    1,
		Outline:        1,
		Alignment:      2,
		MarginL:        10,
		MarginR:        10,
		MarginV:        10,
		Encoding:       1,
	}
}

// ParseStyleOptions overlays user supplied options on DefaultStyle. Keys
// use snake_case names (font_name, margin_v, ...). A nil value keeps the
// default.
func ParseStyleOptions(opts map[string]any) (StyleOptions, error) {
	style := DefaultStyle()

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		val := opts[key]
		if val == nil {
			if _, known := styleSetters[key]; !known {
				errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownStyleOption, key))
			}
			continue
		}
		set, ok := styleSetters[key]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownStyleOption, key))
			continue
		}
		if err := set(&style, val); err != nil {
			errs = append(errs, fmt.Errorf("style option %q: %w", key, err))
		}
	}

	if len(errs) > 0 {
		return StyleOptions{}, errors.Join(errs...)
	}
	return style, nil
}

type styleSetter func(s *StyleOptions, v any) error

const maxStyleInt = math.MaxInt32

// intField accepts whole numbers in [lo, hi].
func intField(lo, hi int, dst func(*StyleOptions) *int) styleSetter {
	return func(s *StyleOptions, v any) error {
		n, err := toFloat(v)
		if err != nil {
			return err
		}
		if n != math.Trunc(n) {
			return fmt.Errorf("expected whole number, got %v", n)
		}
		if n < float64(lo) || n > float64(hi) {
			return fmt.Errorf("%v is outside [%d, %d]", n, lo, hi)
		}
		*dst(s) = int(n)
		return nil
	}
}

// floatField accepts numbers not below lo.
func floatField(lo float64, dst func(*StyleOptions) *float64) styleSetter {
	return func(s *StyleOptions, v any) error {
		n, err := toFloat(v)
		if err != nil {
			return err
		}
		if n < lo {
			return fmt.Errorf("%v is below %v", n, lo)
		}
		*dst(s) = n
		return nil
	}
}

func stringField(dst func(*StyleOptions) *string) styleSetter {
	return func(s *StyleOptions, v any) error {
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		*dst(s) = str
		return nil
	}
}

// Bold, Italic, Underline and StrikeOut are ASS flags: -1 or 1 on, 0 off.
var styleSetters = map[string]styleSetter{
	"font_name":       stringField(func(s *StyleOptions) *string { return &s.FontName }),
	"font_size":       intField(1, maxStyleInt, func(s *StyleOptions) *int { return &s.FontSize }),
	"primary_color":   stringField(func(s *StyleOptions) *string { return &s.PrimaryColor }),
	"secondary_color": stringField(func(s *StyleOptions) *string { return &s.SecondaryColor }),
	"outline_color":   stringField(func(s *StyleOptions) *string { return &s.OutlineColor }),
	"back_color":      stringField(func(s *StyleOptions) *string { return &s.BackColor }),
	"highlight_color": stringField(func(s *StyleOptions) *string { return &s.HighlightColor }),
	"bold":            intField(-1, 1, func(s *StyleOptions) *int { return &s.Bold }),
	"italic":          intField(-1, 1, func(s *StyleOptions) *int { return &s.Italic }),
	"underline":       intField(-1, 1, func(s *StyleOptions) *int { return &s.Underline }),
	"strikeout":       intField(-1, 1, func(s *StyleOptions) *int { return &s.StrikeOut }),
	"scale_x":         intField(0, maxStyleInt, func(s *StyleOptions) *int { return &s.ScaleX }),
	"scale_y":         intField(0, maxStyleInt, func(s *StyleOptions) *int { return &s.ScaleY }),
	"spacing":         floatField(math.Inf(-1), func(s *StyleOptions) *float64 { return &s.Spacing }),
	"angle":           floatField(math.Inf(-1), func(s *StyleOptions) *float64 { return &s.Angle }),
	"border_style":    intField(1, 4, func(s *StyleOptions) *int { return &s.BorderStyle }),
	"outline":         floatField(0, func(s *StyleOptions) *float64 { return &s.Outline }),
	"shadow":          floatField(0, func(s *StyleOptions) *float64 { return &s.Shadow }),
	"alignment":       intField(1, 9, func(s *StyleOptions) *int { return &s.Alignment }),
	"margin_l":        intField(0, maxStyleInt, func(s *StyleOptions) *int { return &s.MarginL }),
	"margin_r":        intField(0, maxStyleInt, func(s *StyleOptions) *int { return &s.MarginR }),
	"margin_v":        intField(0, maxStyleInt, func(s *StyleOptions) *int { return &s.MarginV }),
	"encoding":        intField(0, 255, func(s *StyleOptions) *int { return &s.Encoding }),
	"blur": func(s *StyleOptions, v any) error {
		var n float64
		if err := floatField(0, func(*StyleOptions) *float64 { return &n })(s, v); err != nil {
			return err
		}
		s.Blur = &n
		return nil
	},
}

// toFloat converts JSON, flag and Go numbers. Non-finite values are
// rejected.
func toFloat(v any) (float64, error) {
	n, err := anyToFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("expected finite number, got %v", n)
	}
	return n, nil
}

func anyToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StyleLine renders the V4+ "Style:" line named name, fields in the order
// of assStyleFormat.
func (s StyleOptions) StyleLine(name string) string {
	fields := []string{
		name,
		s.FontName,
		strconv.Itoa(s.FontSize),
		s.PrimaryColor,
		s.SecondaryColor,
		s.OutlineColor,
		s.BackColor,
		strconv.Itoa(s.Bold),
		strconv.Itoa(s.Italic),
		strconv.Itoa(s.Underline),
		strconv.Itoa(s.StrikeOut),
		strconv.Itoa(s.ScaleX),
		strconv.Itoa(s.ScaleY),
		formatNum(s.Spacing),
		formatNum(s.Angle),
		strconv.Itoa(s.BorderStyle),
		formatNum(s.Outline),
		formatNum(s.Shadow),
		strconv.Itoa(s.Alignment),
		strconv.Itoa(s.MarginL),
		strconv.Itoa(s.MarginR),
		strconv.Itoa(s.MarginV),
		strconv.Itoa(s.Encoding),
	}
	return "Style: " + strings.Join(fields, ",")
}

// ForceStyle renders the override string for ffmpeg's subtitles filter
// (force_style). Every field of the resolved style is emitted, defaults
// included, so the burned result does not depend on libass defaults. Empty
// strings and an unset Blur are left out.
func (s StyleOptions) ForceStyle() string {
	pairs := []struct {
		key string
		val string
	}{
		{"FontName", s.FontName},
		{"FontSize", strconv.Itoa(s.FontSize)},
		{"PrimaryColour", s.PrimaryColor},
		{"SecondaryColour", s.SecondaryColor},
		{"OutlineColour", s.OutlineColor},
		{"BackColour", s.BackColor},
		{"Bold", strconv.Itoa(s.Bold)},
		{"Italic", strconv.Itoa(s.Italic)},
		{"Underline", strconv.Itoa(s.Underline)},
		{"StrikeOut", strconv.Itoa(s.StrikeOut)},
		{"Alignment", strconv.Itoa(s.Alignment)},
		{"MarginV", strconv.Itoa(s.MarginV)},
		{"MarginL", strconv.Itoa(s.MarginL)},
		{"MarginR", strconv.Itoa(s.MarginR)},
		{"Outline", formatNum(s.Outline)},
		{"Shadow", formatNum(s.Shadow)},
		{"BorderStyle", strconv.Itoa(s.BorderStyle)},
		{"Encoding", strconv.Itoa(s.Encoding)},
		{"Spacing", formatNum(s.Spacing)},
		{"Angle", formatNum(s.Angle)},
	}
	if s.Blur != nil {
		pairs = append(pairs, struct {
			key string
			val string
		}{"Blur", formatNum(*s.Blur)})
	}

	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.val == "" {
			continue
		}
		out = append(out, p.key+"="+p.val)
	}
	return strings.Join(out, ",")
}

// overrideColor turns a style colour (&HAABBGGRR) into an inline override
// value (&HBBGGRR&).
func overrideColor(c string) string {
	hex := strings.TrimSuffix(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(c)), "&H"), "&")
	if len(hex) == 8 {
		hex = hex[2:]
	}
	return "&H" + hex + "&"
}
