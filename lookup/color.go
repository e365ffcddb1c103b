/*
 * MIT License
 *
 * Copyright (c) 2026 the siwire authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package lookup

import (
	"strconv"
	"strings"
)

// Color is the four-channel RGBA packet color. The wire form packs it as
// R | G<<8 | B<<16 | A<<24, a signed 32-bit little-endian integer (§4.3).
type Color struct {
	R, G, B, A uint8
}

// DefaultColor is the sentinel the binary formatter writes when a packet
// carries no explicit color: 0xFF000005 little-endian, i.e. R=5 G=0 B=0 A=255.
var DefaultColor = Color{R: 5, G: 0, B: 0, A: 255}

// Named palette colors. DarkGray is normalized to a full RGBA value with
// alpha=255: the source's Color.DARK_GRAY is a bare (64, 64, 64) tuple
// inconsistent with every other entry's RGBAColor(...) call (§9 design note
// d), which this implementation corrects rather than reproduces.
var (
	ColorTransparent = Color{5, 0, 0, 255}
	ColorRed         = Color{255, 0, 0, 255}
	ColorWhite       = Color{255, 255, 255, 255}
	ColorLightGray   = Color{192, 192, 192, 255}
	ColorGray        = Color{128, 128, 128, 255}
	ColorDarkGray    = Color{64, 64, 64, 255}
	ColorBlack       = Color{0, 0, 0, 255}
	ColorPink        = Color{255, 175, 175, 255}
	ColorOrange      = Color{255, 150, 0, 255}
	ColorYellow      = Color{255, 255, 0, 255}
	ColorGreen       = Color{0, 255, 0, 255}
	ColorMagenta     = Color{255, 0, 255, 255}
	ColorCyan        = Color{0, 255, 255, 255}
	ColorBlue        = Color{0, 0, 255, 255}
)

// Int32 packs the color the way the binary formatter's wire layout expects.
func (c Color) Int32() int32 {
	return int32(uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24)
}

// ColorFromInt32 unpacks a wire color value back into its channels.
func ColorFromInt32(v int32) Color {
	u := uint32(v)
	return Color{
		R: uint8(u),
		G: uint8(u >> 8),
		B: uint8(u >> 16),
		A: uint8(u >> 24),
	}
}

// parseColor accepts 0x/&H/$-prefixed 6 or 8 hex digit strings (RGB or ARGB).
// An 8-digit value is read as AARRGGBB; a 6-digit value is RRGGBB with
// alpha defaulted to 255.
func parseColor(s string) (Color, bool) {
	s = strings.TrimSpace(s)
	for _, p := range []string{"0x", "0X", "&H", "&h", "$"} {
		s = strings.TrimPrefix(s, p)
	}

	switch len(s) {
	case 6:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return Color{}, false
		}
		return Color{
			R: uint8(v >> 16),
			G: uint8(v >> 8),
			B: uint8(v),
			A: 255,
		}, true
	case 8:
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return Color{}, false
		}
		return Color{
			A: uint8(v >> 24),
			R: uint8(v >> 16),
			G: uint8(v >> 8),
			B: uint8(v),
		}, true
	default:
		return Color{}, false
	}
}
