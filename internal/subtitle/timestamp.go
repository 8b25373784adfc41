package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// toMicros converts seconds to whole microseconds. Negative and NaN inputs
// clamp to zero. Rounding to the microsecond first keeps values such as
// 1.001 from truncating to 1.000 because of binary float error.
func toMicros(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return int64(math.Round(seconds * 1e6))
}

func splitMillis(seconds float64) (h, m, s, ms int64) {
	total := toMicros(seconds) / 1000
	ms = total % 1000
	total /= 1000
	s = total % 60
	total /= 60
	m = total % 60
	h = total / 60
	return h, m, s, ms
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm, truncating to the
// millisecond.
func FormatSRTTimestamp(seconds float64) string {
	h, m, s, ms := splitMillis(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatVTTTimestamp renders seconds as the canonical WebVTT HH:MM:SS.mmm.
func FormatVTTTimestamp(seconds float64) string {
	h, m, s, ms := splitMillis(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// FormatClock is the timestamp used in plain transcript lines.
func FormatClock(seconds float64) string {
	return FormatVTTTimestamp(seconds)
}

// FormatASSTimestamp renders seconds as H:MM:SS.cc. Centiseconds are
// rounded, and a rounded value of 100 carries into the seconds field.
func FormatASSTimestamp(seconds float64) string {
	centis := (toMicros(seconds) + 5000) / 10000
	cs := centis % 100
	total := centis / 100
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// ParseSRTTimestamp parses HH:MM:SS,mmm into seconds.
func ParseSRTTimestamp(value string) (float64, error) {
	return parseClock(value, ",", 3)
}

// ParseVTTTimestamp parses HH:MM:SS.mmm (hours optional) into seconds.
func ParseVTTTimestamp(value string) (float64, error) {
	return parseClock(value, ".", 3)
}

// ParseASSTimestamp parses H:MM:SS.cc into seconds.
func ParseASSTimestamp(value string) (float64, error) {
	return parseClock(value, ".", 2)
}

func parseClock(value, fracSep string, fracDigits int) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	main, frac, ok := strings.Cut(value, fracSep)
	if !ok || len(frac) != fracDigits {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	parts := strings.Split(main, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	var fields [4]int
	for i, p := range append(parts, frac) {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	scale := math.Pow10(fracDigits)
	whole := float64(fields[0]*3600 + fields[1]*60 + fields[2])
	return whole + float64(fields[3])/scale, nil
}
