package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"contours/internal/services/vision"
)

const outlineThickness = 2

// stroke describes one DrawContours call for a region.
type stroke struct {
	alpha     int
	thickness int // negative fills the polygon
}

var (
	outlineStrokes   = []stroke{{alpha: vision.AlphaOpaque, thickness: outlineThickness}}
	savedStrokes     = []stroke{{alpha: vision.AlphaSaved, thickness: -1}, {alpha: vision.AlphaOpaque, thickness: outlineThickness}}
	highlightStrokes = []stroke{{alpha: vision.AlphaOpaque, thickness: -1}}
)

// RenderOutlines draws every region's border in its own opaque color on a
// transparent layer of the given size.
func RenderOutlines(regions []vision.Region, width, height int) (*image.NRGBA, error) {
	all := make([]int, len(regions))
	for i := range regions {
		all[i] = i
	}
	return render(regions, width, height, all, outlineStrokes)
}

// RenderSaved draws the selected regions with a translucent fill and an opaque border.
func RenderSaved(regions []vision.Region, width, height int, indices []int) (*image.NRGBA, error) {
	return render(regions, width, height, indices, savedStrokes)
}

// RenderHighlights fills the selected regions with their opaque color.
func RenderHighlights(regions []vision.Region, width, height int, indices []int) (*image.NRGBA, error) {
	return render(regions, width, height, indices, highlightStrokes)
}

func render(regions []vision.Region, width, height int, indices []int, strokes []stroke) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, max(width, 0), max(height, 0))), nil
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC4)
	defer mat.Close()

	if len(regions) > 0 && len(indices) > 0 {
		pts := make([][]image.Point, len(regions))
		for i, r := range regions {
			pts[i] = r
		}
		contours := gocv.NewPointsVectorFromPoints(pts)
		defer contours.Close()

		for _, idx := range indices {
			if idx < 0 || idx >= len(regions) {
				continue
			}
			for _, s := range strokes {
				if err := gocv.DrawContours(&mat, contours, idx, vision.ColorFor(idx, s.alpha).ToRGBA(), s.thickness); err != nil {
					return nil, fmt.Errorf("failed to draw region %d: %w", idx, err)
				}
			}
		}
	}

	return bgraToNRGBA(mat)
}

// bgraToNRGBA copies a CV_8UC4 mat (OpenCV channel order) into a Go image.
func bgraToNRGBA(mat gocv.Mat) (*image.NRGBA, error) {
	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay pixels: %w", err)
	}
	w, h := mat.Cols(), mat.Rows()
	if len(data) < w*h*4 {
		return nil, fmt.Errorf("overlay buffer too small: %d bytes for %dx%d", len(data), w, h)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h*4; i += 4 {
		out.Pix[i+0] = data[i+2]
		out.Pix[i+1] = data[i+1]
		out.Pix[i+2] = data[i+0]
		out.Pix[i+3] = data[i+3]
	}
	return out, nil
}
