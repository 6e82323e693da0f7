// internal/detector/settings.go
package detector

import (
	"sync"
	"time"
)

// Settings is the mutable tuning cell shared between the HTTP API and
// the detection loop. The loop re-reads it at the start of every tick,
// so updates take effect on the next tick without restarting the loop.
type Settings struct {
	mu            sync.RWMutex
	confThreshold float32
	iouThreshold  float32
	tickInterval  time.Duration
}

// NewSettings creates a Settings cell seeded with the given values.
func NewSettings(confThreshold, iouThreshold float32, tickInterval time.Duration) *Settings {
	return &Settings{
		confThreshold: confThreshold,
		iouThreshold:  iouThreshold,
		tickInterval:  tickInterval,
	}
}

// Snapshot returns a consistent view of all three tunables.
func (s *Settings) Snapshot() (confThreshold, iouThreshold float32, tickInterval time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confThreshold, s.iouThreshold, s.tickInterval
}

// SetConfidenceThreshold updates the confidence threshold.
func (s *Settings) SetConfidenceThreshold(v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confThreshold = v
}

// SetIoUThreshold updates the IoU threshold used by suppression.
func (s *Settings) SetIoUThreshold(v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iouThreshold = v
}

// SetTickInterval updates the loop's tick interval.
func (s *Settings) SetTickInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickInterval = d
}
