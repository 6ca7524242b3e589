// Package cv runs the OpenCV side of region handling: color detection and
// overlay drawing. Everything else in vision stays free of cgo.
package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"contours/internal/services/vision"
)

// ContourExtractor turns an RGB pixel buffer into the ordered list of external
// region boundaries whose color falls in the target hue band. It holds no
// state between calls; the same buffer always yields the same list.
type ContourExtractor struct {
	params vision.Params
}

// NewContourExtractor creates an extractor with the given parameters.
func NewContourExtractor(params vision.Params) *ContourExtractor {
	return &ContourExtractor{params: params}
}

// Params returns the parameters the extractor was built with.
func (e *ContourExtractor) Params() vision.Params {
	return e.params
}

// Extract runs threshold, open, close and external boundary tracing.
// Zero-sized and single-pixel buffers produce an empty list.
func (e *ContourExtractor) Extract(buf vision.PixelBuffer) ([]vision.Region, error) {
	if buf.Empty() || buf.Width*buf.Height <= 1 {
		return []vision.Region{}, nil
	}

	img, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, buf.Pix[:buf.Width*buf.Height*3])
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pixel buffer: %w", err)
	}
	defer img.Close()

	mask, err := e.threshold(img)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	if err := e.clean(&mask); err != nil {
		return nil, err
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]vision.Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		regions = append(regions, vision.Region(contours.At(i).ToPoints()))
	}
	return regions, nil
}

// threshold builds the binary mask of pixels in either half of the hue band.
// The caller closes the returned mat.
func (e *ContourExtractor) threshold(img gocv.Mat) (gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(img, &hsv, gocv.ColorRGBToHSV); err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image to HSV: %w", err)
	}

	sat := float64(e.params.MinSaturation)
	val := float64(e.params.MinValue)

	low := gocv.NewMat()
	defer low.Close()
	if err := gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, sat, val, 0),
		gocv.NewScalar(float64(e.params.LowHueMax), 255, 255, 0),
		&low); err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to threshold low hue band: %w", err)
	}

	high := gocv.NewMat()
	defer high.Close()
	if err := gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(e.params.HighHueMin), sat, val, 0),
		gocv.NewScalar(180, 255, 255, 0),
		&high); err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to threshold high hue band: %w", err)
	}

	mask := gocv.NewMat()
	if err := gocv.BitwiseOr(low, high, &mask); err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("failed to merge hue bands: %w", err)
	}
	return mask, nil
}

// clean removes specks first and only then bridges gaps, so noise never gets
// fused into a real region.
func (e *ContourExtractor) clean(mask *gocv.Mat) error {
	if e.params.OpenKernel > 0 {
		open := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(e.params.OpenKernel, e.params.OpenKernel))
		defer open.Close()
		if err := gocv.MorphologyEx(*mask, mask, gocv.MorphOpen, open); err != nil {
			return fmt.Errorf("failed to open mask: %w", err)
		}
	}

	if e.params.CloseKernel > 0 {
		closeKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(e.params.CloseKernel, e.params.CloseKernel))
		defer closeKernel.Close()
		if err := gocv.MorphologyEx(*mask, mask, gocv.MorphClose, closeKernel); err != nil {
			return fmt.Errorf("failed to close mask: %w", err)
		}
	}
	return nil
}
