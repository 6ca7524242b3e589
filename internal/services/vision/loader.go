package vision

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultMaxHeight is the tallest image handed to the extractor unscaled.
const DefaultMaxHeight = 800

// DecodeImage decodes a PNG, JPEG or WebP stream, honoring EXIF orientation, and
// shrinks it to maxHeight (aspect ratio kept) when it is taller.
// A non-positive maxHeight disables scaling.
func DecodeImage(r io.Reader, maxHeight int) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FitHeight(img, maxHeight), nil
}

// FitHeight returns an NRGBA copy of img, downscaled when taller than maxHeight.
func FitHeight(img image.Image, maxHeight int) *image.NRGBA {
	if maxHeight > 0 && img.Bounds().Dy() > maxHeight {
		return imaging.Resize(img, 0, maxHeight, imaging.Lanczos)
	}
	return imaging.Clone(img)
}

// Composite stacks the layers over base in order using normal alpha blending.
// Nil layers are skipped.
func Composite(base image.Image, layers ...image.Image) image.Image {
	out := base
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		out = blend.Normal(out, layer)
	}
	return out
}

// EncodePNG serializes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
