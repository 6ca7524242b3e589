package vision

import (
	"image"
	"reflect"
	"testing"
)

func TestNewPixelBuffer(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Pix = []uint8{10, 20, 30, 255, 40, 50, 60, 255}

	buf := NewPixelBuffer(img)
	if buf.Width != 2 || buf.Height != 1 {
		t.Fatalf("Unexpected size %dx%d", buf.Width, buf.Height)
	}
	if !reflect.DeepEqual(buf.Pix, []uint8{10, 20, 30, 40, 50, 60}) {
		t.Errorf("Unexpected pixels: %v", buf.Pix)
	}
}

func TestPixelBuffer_Empty(t *testing.T) {
	tests := []struct {
		name string
		buf  PixelBuffer
		want bool
	}{
		{"zero value", PixelBuffer{}, true},
		{"short pixels", PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 11)}, true},
		{"exact pixels", PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 12)}, false},
	}

	for _, tt := range tests {
		if got := tt.buf.Empty(); got != tt.want {
			t.Errorf("%s: Empty() = %v, expected %v", tt.name, got, tt.want)
		}
	}
}
