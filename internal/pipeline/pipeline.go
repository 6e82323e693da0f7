// internal/pipeline/pipeline.go

// Package pipeline implements the numeric stages of the detection
// pipeline: letterbox preprocessing of a raw frame into a model tensor,
// decoding of raw model output into candidate detections, and class-aware
// non-maximum suppression of the candidates.
package pipeline

import "errors"

// ErrInvalidFrame is returned when a frame is zero-area or its pixel
// buffer does not match its declared dimensions. The detection loop
// treats it as a skipped tick, never as a fatal condition.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a borrowed RGBA pixel grid. Pixels holds 4 bytes per pixel in
// row-major order; the alpha channel is ignored by preprocessing. The
// pipeline never retains a Frame past the call it was passed to.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
}

// Tensor is a flat float32 buffer plus its shape, laid out planar NCHW:
// all red values, then all green, then all blue. It is produced by
// Preprocess and consumed exactly once by the inference engine.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// RawOutput is the inference engine's result viewed as Rows detection
// rows of RowSize values each: 4 box parameters (center x, center y,
// width, height in model-input pixels), 1 objectness score, then one
// score per class.
type RawOutput struct {
	Data    []float32
	Rows    int
	RowSize int
}

// Row returns the i-th detection row as a subslice of Data.
func (r *RawOutput) Row(i int) []float32 {
	return r.Data[i*r.RowSize : (i+1)*r.RowSize]
}

// Box is an axis-aligned rectangle in image pixel coordinates.
type Box struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Detection is one classified, localized object. Immutable once
// constructed; Color is the class's stable display color in hex.
type Detection struct {
	Box        Box     `json:"box"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Color      string  `json:"color"`
}
