package vision

import (
	"image"
)

// PixelBuffer is a decoded 3-channel RGB image, row-major, 8 bits per channel.
type PixelBuffer struct {
	Pix    []uint8
	Width  int
	Height int
}

// Empty reports whether the buffer has no usable pixels.
func (b PixelBuffer) Empty() bool {
	return b.Width <= 0 || b.Height <= 0 || len(b.Pix) < b.Width*b.Height*3
}

// Bounds returns the pixel rectangle covered by the buffer.
func (b PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// NewPixelBuffer packs any image into an RGB buffer. Alpha is dropped.
func NewPixelBuffer(img image.Image) PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, 0, w*h*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pix = append(pix, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return PixelBuffer{Pix: pix, Width: w, Height: h}
}

// Region is the closed boundary polygon of one detected area. A region is
// identified only by its position in the list produced by a detection pass.
type Region []image.Point

// Bounds returns the bounding box of the polygon (max edges exclusive).
func (r Region) Bounds() image.Rectangle {
	if len(r) == 0 {
		return image.Rectangle{}
	}
	rect := image.Rectangle{Min: r[0], Max: r[0]}
	for _, p := range r[1:] {
		rect.Min.X = min(rect.Min.X, p.X)
		rect.Min.Y = min(rect.Min.Y, p.Y)
		rect.Max.X = max(rect.Max.X, p.X)
		rect.Max.Y = max(rect.Max.Y, p.Y)
	}
	rect.Max = rect.Max.Add(image.Pt(1, 1))
	return rect
}

// Clone returns a copy that does not share the point slice.
func (r Region) Clone() Region {
	out := make(Region, len(r))
	copy(out, r)
	return out
}

// CloneRegions copies a region list point by point.
func CloneRegions(regions []Region) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = r.Clone()
	}
	return out
}
