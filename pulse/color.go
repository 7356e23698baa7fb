package pulse

import (
	"image/color"

	"github.com/oliverbestmann/prepass/glm"
)

var ColorWhite = ColorLinearRGBA(1, 1, 1, 1)
var ColorBlack = ColorLinearRGBA(0, 0, 0, 1)
var ColorTransparent = ColorLinearRGBA(0, 0, 0, 0)

// Color is a straight rgba color value in linear rgb color space.
type Color struct {
	R, G, B, A float32
}

// ColorOf converts the values of the given vector into a Color.
func ColorOf(color glm.Vec4f) Color {
	return ColorLinearRGBA(color[0], color[1], color[2], color[3])
}

func ColorLinearRGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

func (c Color) ToVec() glm.Vec4f {
	return glm.Vec4f{c.R, c.G, c.B, c.A}
}

// ToRGBA8 quantizes the color into 8 bit per channel, clamping
// each component into [0, 1] first.
func (c Color) ToRGBA8() color.RGBA {
	return color.RGBA{
		R: unorm8(c.R),
		G: unorm8(c.G),
		B: unorm8(c.B),
		A: unorm8(c.A),
	}
}

func unorm8(value float32) uint8 {
	value = min(max(value, 0), 1)
	return uint8(value*255 + 0.5)
}
