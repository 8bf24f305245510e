package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an sRGB material color
type Color struct {
	R, G, B uint8
}

// DefaultColor is the material color of freshly loaded meshes
var DefaultColor = Color{0xCC, 0xCC, 0xCC}

// namedColors holds the color words the prompt interpreter recognizes
var namedColors = map[string]Color{
	"red":     {0xFF, 0x00, 0x00},
	"green":   {0x00, 0x80, 0x00},
	"blue":    {0x00, 0x00, 0xFF},
	"yellow":  {0xFF, 0xFF, 0x00},
	"orange":  {0xFF, 0xA5, 0x00},
	"purple":  {0x80, 0x00, 0x80},
	"pink":    {0xFF, 0xC0, 0xCB},
	"black":   {0x00, 0x00, 0x00},
	"white":   {0xFF, 0xFF, 0xFF},
	"gray":    {0x80, 0x80, 0x80},
	"grey":    {0x80, 0x80, 0x80},
	"silver":  {0xC0, 0xC0, 0xC0},
	"gold":    {0xFF, 0xD7, 0x00},
	"brown":   {0xA5, 0x2A, 0x2A},
	"cyan":    {0x00, 0xFF, 0xFF},
	"magenta": {0xFF, 0x00, 0xFF},
	"teal":    {0x00, 0x80, 0x80},
	"navy":    {0x00, 0x00, 0x80},
	"lime":    {0x00, 0xFF, 0x00},
	"violet":  {0xEE, 0x82, 0xEE},
}

// ColorNames returns the recognized color words
func ColorNames() []string {
	names := make([]string, 0, len(namedColors))
	for name := range namedColors {
		names = append(names, name)
	}
	return names
}

// ParseColor accepts a color name or a #RGB / #RRGGBB hex string
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 || !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("unknown color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// Hex returns the color as #RRGGBB
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
