package vision

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	// HueStep is the angular distance between the colors of consecutive regions.
	HueStep = 80

	// Alpha values used by the three rendering modes.
	AlphaOpaque = 255
	AlphaSaved  = 63
)

// Phase offsets (degrees) of the piecewise-linear hue to RGB mapping.
const (
	phaseRed   = 300
	phaseGreen = 180
	phaseBlue  = 60
)

// Color is the visualization color assigned to a region index.
type Color struct {
	Hue int
	R   uint8
	G   uint8
	B   uint8
	A   uint8
}

// HueFor returns the hue (0-359) used for the region at index.
func HueFor(index int) int {
	hue := (HueStep * index) % 360
	if hue < 0 {
		hue += 360
	}
	return hue
}

// ColorFor maps a region index to a fully saturated color. Alpha passes through.
func ColorFor(index, alpha int) Color {
	hue := HueFor(index)
	return Color{
		Hue: hue,
		R:   channel(phaseRed, hue),
		G:   channel(phaseGreen, hue),
		B:   channel(phaseBlue, hue),
		A:   clampByte(alpha),
	}
}

// channel evaluates one channel of the hue wheel. Sectors are 30 degrees wide
// and the sector index is truncated, so hues inside a sector share a color.
func channel(phase, hue int) uint8 {
	sector := (phase/30 + hue/30) % 12
	k := int(127.5 * float64(sector))
	v := min(k, 1020-k)
	return uint8(255 - max(min(v, 255), 0))
}

func clampByte(v int) uint8 {
	return uint8(max(min(v, 255), 0))
}

// ToRGBA converts to the standard library color type. Channels are kept
// unpremultiplied, which is what the drawing routines expect.
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Hex returns the "#rrggbb" swatch of the color, alpha excluded.
func (c Color) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}
