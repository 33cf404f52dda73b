package emulator

import (
	"encoding/base64"
	"fmt"
	"time"
)

// FrameEnvelope holds one captured raster frame and its metadata. Pixels are
// stored as a flat byte buffer; Shape carries the logical dimensions
// (rows, cols) for grayscale or (rows, cols, channels) for RGB.
type FrameEnvelope struct {
	Pixels    []byte    `json:"-"`
	Shape     []int     `json:"shape"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFrame builds a frame envelope stamped with the current time.
func NewFrame(pixels []byte, shape []int) FrameEnvelope {
	return FrameEnvelope{Pixels: pixels, Shape: shape, Timestamp: time.Now()}
}

// Validate checks the frame is structurally well-formed: rank 2 or 3, a
// non-empty buffer consistent with the shape, and an exact match against
// expectedShape when one is supplied.
func (f *FrameEnvelope) Validate(expectedShape []int) error {
	if len(f.Shape) != 2 && len(f.Shape) != 3 {
		return fmt.Errorf("frames must be 2D (grayscale) or 3D (RGB), got rank %d", len(f.Shape))
	}
	if len(f.Pixels) != f.Size() {
		return fmt.Errorf("frame buffer holds %d bytes but shape %v requires %d", len(f.Pixels), f.Shape, f.Size())
	}
	if len(expectedShape) > 0 && !shapeEqual(f.Shape, expectedShape) {
		return fmt.Errorf("unexpected frame shape %v; expected %v", f.Shape, expectedShape)
	}
	return nil
}

// Size returns the number of bytes the shape implies.
func (f *FrameEnvelope) Size() int {
	if len(f.Shape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range f.Shape {
		size *= dim
	}
	return size
}

// AsBase64 encodes the pixel buffer for JSON transport.
func (f *FrameEnvelope) AsBase64() string {
	return base64.StdEncoding.EncodeToString(f.Pixels)
}

// Payload returns the wire representation of the frame.
func (f *FrameEnvelope) Payload() map[string]interface{} {
	return map[string]interface{}{
		"encoding":  "base64",
		"data":      f.AsBase64(),
		"shape":     f.Shape,
		"dtype":     "uint8",
		"timestamp": f.Timestamp,
	}
}

// Describe returns structured frame metadata for logging and health reports.
func (f *FrameEnvelope) Describe() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": f.Timestamp,
		"shape":     f.Shape,
		"dtype":     "uint8",
	}
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
