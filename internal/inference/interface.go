// internal/inference/interface.go
package inference

import (
	"errors"

	"github.com/modelportal/detection-service/internal/pipeline"
)

// ErrModelLoad indicates the model bytes were missing, corrupt, or
// rejected by the runtime. Load failures are terminal for a detection
// run until the caller retries the load explicitly.
var ErrModelLoad = errors.New("model load failed")

// ErrInference indicates a single engine invocation failed. The
// detection loop skips the tick and continues.
var ErrInference = errors.New("inference failed")

// Engine runs a loaded detection model.
// This abstraction allows for easy mocking in tests and swapping
// implementations.
type Engine interface {
	// Run feeds one input tensor through the model and returns the raw
	// output rows. The input is consumed exactly once per call.
	Run(input *pipeline.Tensor) (*pipeline.RawOutput, error)

	// Close releases any resources held by the engine.
	Close() error
}
