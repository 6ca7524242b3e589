package vision

// Params tunes the color detection pipeline. Hue values use the OpenCV
// convention (0-180); the target band wraps around 0, so it is expressed as a
// low range [0, LowHueMax] plus a high range [HighHueMin, 180].
type Params struct {
	LowHueMax     int
	HighHueMin    int
	MinSaturation int
	MinValue      int
	OpenKernel    int // ellipse diameter of the noise-removing open
	CloseKernel   int // ellipse diameter of the fragment-fusing close
}

// DefaultParams detects saturated red.
func DefaultParams() Params {
	return Params{
		LowHueMax:     4,
		HighHueMin:    176,
		MinSaturation: 90,
		MinValue:      90,
		OpenKernel:    5,
		CloseKernel:   9,
	}
}
