// internal/pipeline/preprocess.go
package pipeline

import (
	"fmt"

	"github.com/modelportal/detection-service/internal/model"
)

// Preprocess converts an RGBA frame into the model's planar NCHW input
// tensor using a letterbox resize: the frame is scaled by a single
// min-ratio factor so aspect ratio is preserved, centered on the target
// canvas, and the remainder is zero-padded. Sampling is nearest-neighbor
// and channel values are normalized from [0,255] to [0,1]. Alpha is
// discarded.
func Preprocess(frame *Frame, cfg *model.Config) (*Tensor, error) {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("%w: zero-area frame", ErrInvalidFrame)
	}
	if len(frame.Pixels) < frame.Width*frame.Height*4 {
		return nil, fmt.Errorf("%w: pixel buffer has %d bytes, need %d for %dx%d RGBA",
			ErrInvalidFrame, len(frame.Pixels), frame.Width*frame.Height*4, frame.Width, frame.Height)
	}

	targetW, targetH := cfg.InputWidth, cfg.InputHeight
	ratio, scaledW, scaledH, offsetX, offsetY := letterbox(frame.Width, frame.Height, targetW, targetH)

	plane := targetW * targetH
	data := make([]float32, 3*plane)

	for y := 0; y < targetH; y++ {
		srcY := y - offsetY
		if srcY < 0 || srcY >= scaledH {
			continue // padding row, stays zero
		}
		fy := int(float32(srcY) / ratio)
		if fy >= frame.Height {
			fy = frame.Height - 1
		}
		rowBase := y * targetW
		srcRowBase := fy * frame.Width
		for x := 0; x < targetW; x++ {
			srcX := x - offsetX
			if srcX < 0 || srcX >= scaledW {
				continue
			}
			fx := int(float32(srcX) / ratio)
			if fx >= frame.Width {
				fx = frame.Width - 1
			}
			p := (srcRowBase + fx) * 4
			i := rowBase + x
			data[i] = float32(frame.Pixels[p]) / 255.0
			data[plane+i] = float32(frame.Pixels[p+1]) / 255.0
			data[2*plane+i] = float32(frame.Pixels[p+2]) / 255.0
		}
	}

	return &Tensor{
		Data:  data,
		Shape: []int64{1, 3, int64(targetH), int64(targetW)},
	}, nil
}

// letterbox computes the uniform scale factor and the centered placement
// of the scaled frame on the target canvas. A frame smaller than the
// target in one axis still scales by the single min ratio, so aspect
// ratio is always preserved.
func letterbox(frameW, frameH, targetW, targetH int) (ratio float32, scaledW, scaledH, offsetX, offsetY int) {
	rw := float32(targetW) / float32(frameW)
	rh := float32(targetH) / float32(frameH)
	ratio = min(rw, rh)
	scaledW = int(float32(frameW) * ratio)
	scaledH = int(float32(frameH) * ratio)
	offsetX = (targetW - scaledW) / 2
	offsetY = (targetH - scaledH) / 2
	return ratio, scaledW, scaledH, offsetX, offsetY
}
