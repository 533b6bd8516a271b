// Colour helpers for emoji intensities. Colours are stored as "#RRGGBB"
// strings; opacity is kept on the intensity and combined on demand.

package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an opaque sRGB colour.
type Color struct {
	R, G, B uint8
}

// RGBA is a colour combined with an opacity in [0,1].
type RGBA struct {
	R, G, B uint8
	A       float64
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB", ignoring surrounding whitespace.
//
// Examples:
//
//	ParseHexColor("#0000FF") -> Color{0, 0, 255}, nil
//	ParseHexColor(" ff8800 ") -> Color{255, 136, 0}, nil
//	ParseHexColor("#12345") -> Color{}, ErrInvalidColor
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{
		R: uint8(v >> 16 & 0xFF),
		G: uint8(v >> 8 & 0xFF),
		B: uint8(v & 0xFF),
	}, nil
}

// Hex formats the colour as "#RRGGBB" with upper-case digits.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// WithOpacity clamps opacity into [0,1] and returns the RGBA value.
func (c Color) WithOpacity(opacity float64) RGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return RGBA{R: c.R, G: c.G, B: c.B, A: opacity}
}

// Color resolves the stored hex colour, falling back to blue when the
// stored value cannot be parsed.
func (ei EmojiIntensity) Color() RGBA {
	c, err := ParseHexColor(ei.ColorHex)
	if err != nil {
		c = Color{B: 0xFF}
	}
	return c.WithOpacity(ei.Opacity)
}

// NormalizeHex canonicalises a colour string, returning the input error
// when it is not a valid colour.
func NormalizeHex(s string) (string, error) {
	c, err := ParseHexColor(s)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}
