// internal/framesource/framesource.go

// Package framesource supplies frames to the detection loop. The portal
// front end acquires the webcam and posts encoded frames over HTTP; this
// package decodes them and holds the most recent one for the loop to
// pull.
package framesource

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/modelportal/detection-service/internal/pipeline"
)

// LatestFrame is a push cell holding the most recently ingested frame.
// Next reports not-ready until the first Put; afterwards it always
// serves the latest frame. Older frames are dropped, never queued.
type LatestFrame struct {
	mu    sync.RWMutex
	frame *pipeline.Frame
}

// NewLatestFrame creates an empty (not ready) cell.
func NewLatestFrame() *LatestFrame {
	return &LatestFrame{}
}

// Next returns the current frame, or ok=false if none has been ingested
// yet.
func (l *LatestFrame) Next() (*pipeline.Frame, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.frame == nil {
		return nil, false
	}
	return l.frame, true
}

// Put replaces the current frame.
func (l *LatestFrame) Put(frame *pipeline.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame = frame
}

// Static always serves the same frame. Useful for tests and offline
// runs.
type Static struct {
	Frame *pipeline.Frame
}

// Next returns the static frame.
func (s *Static) Next() (*pipeline.Frame, bool) {
	if s.Frame == nil {
		return nil, false
	}
	return s.Frame, true
}

// Decode converts encoded image bytes (JPEG, PNG, ...) into an RGBA
// frame, honoring EXIF orientation.
func Decode(data []byte) (*pipeline.Frame, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", pipeline.ErrInvalidFrame, err)
	}

	// Clone always yields an NRGBA image backed by a packed 4-byte
	// per-pixel buffer starting at the image origin.
	rgba := imaging.Clone(img)
	width := rgba.Rect.Dx()
	height := rgba.Rect.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: decoded image is zero-area", pipeline.ErrInvalidFrame)
	}

	return &pipeline.Frame{
		Pixels: rgba.Pix,
		Width:  width,
		Height: height,
	}, nil
}
