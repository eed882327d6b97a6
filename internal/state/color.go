package state

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Color is a CSS color in normalized "rgb(r, g, b)" notation. Two colors
// are equal only if their channels are bit-exact.
type Color string

// Design-token border colors.
const (
	Neutral  Color = "rgb(0, 0, 0)"
	ErrorRed Color = "rgb(236, 39, 43)"
)

var (
	rgbPattern = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*([0-9.]+)\s*)?\)$`)
	hexPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// ParseColor normalizes the rgb(), opaque rgba() and hex notations.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if m := rgbPattern.FindStringSubmatch(s); m != nil {
		if m[4] != "" {
			if a, err := strconv.ParseFloat(m[4], 64); err != nil || a != 1 {
				return "", fmt.Errorf("unsupported translucent color %q", s)
			}
		}
		var ch [3]int
		for i := range ch {
			v, _ := strconv.Atoi(m[i+1])
			if v > 255 {
				return "", fmt.Errorf("color channel out of range in %q", s)
			}
			ch[i] = v
		}
		return rgb(ch), nil
	}
	if m := hexPattern.FindStringSubmatch(s); m != nil {
		h := m[1]
		if len(h) == 3 {
			h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
		}
		var ch [3]int
		for i := range ch {
			v, _ := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
			ch[i] = int(v)
		}
		return rgb(ch), nil
	}
	return "", fmt.Errorf("unrecognized color %q", s)
}

// RawColor keeps a value ParseColor rejects, whitespace-normalized, so it
// can still be reported. It differs from every parsed Color.
func RawColor(s string) Color {
	return Color(strings.Join(strings.Fields(s), " "))
}

// MustParseColor is ParseColor for constants; it panics on error.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func rgb(ch [3]int) Color {
	return Color(fmt.Sprintf("rgb(%d, %d, %d)", ch[0], ch[1], ch[2]))
}
