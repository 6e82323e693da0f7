// internal/inference/mock.go
package inference

import (
	"fmt"
	"sync"
	"time"

	"github.com/modelportal/detection-service/internal/model"
	"github.com/modelportal/detection-service/internal/pipeline"
)

// MockEngine is a mock implementation of Engine for testing and for
// running the service without the ONNX shared library. It returns a
// configurable canned output for every call.
type MockEngine struct {
	mu sync.Mutex

	cfg *model.Config
	// Output is returned from every Run call. Defaults to an all-zero
	// output of the config's shape (no detections).
	Output *pipeline.RawOutput
	// RunDelay makes each Run call block for the given duration,
	// simulating a slow model.
	RunDelay time.Duration
	// ShouldError if true, Run will return an error
	ShouldError bool
	// ErrorMessage is the error message to return when ShouldError is true
	ErrorMessage string
	// CallCount tracks the number of times Run was called
	CallCount int
}

// NewMock creates a MockEngine that reports no detections.
func NewMock(cfg *model.Config) *MockEngine {
	return &MockEngine{
		cfg: cfg,
		Output: &pipeline.RawOutput{
			Data:    make([]float32, cfg.OutputRows*cfg.RowSize()),
			Rows:    cfg.OutputRows,
			RowSize: cfg.RowSize(),
		},
	}
}

// NewMockWithRows creates a MockEngine whose output contains the given
// detection rows (each of length cfg.RowSize()) followed by zero rows up
// to the config's row count.
func NewMockWithRows(cfg *model.Config, rows ...[]float32) *MockEngine {
	m := NewMock(cfg)
	for i, row := range rows {
		copy(m.Output.Data[i*cfg.RowSize():], row)
	}
	return m
}

// Run validates the input tensor against the config and returns the
// canned output.
func (m *MockEngine) Run(input *pipeline.Tensor) (*pipeline.RawOutput, error) {
	m.mu.Lock()
	m.CallCount++
	shouldError := m.ShouldError
	errMsg := m.ErrorMessage
	delay := m.RunDelay
	out := m.Output
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if shouldError {
		if errMsg != "" {
			return nil, fmt.Errorf("%w: %s", ErrInference, errMsg)
		}
		return nil, fmt.Errorf("%w: mock inference error", ErrInference)
	}

	expected := 3 * m.cfg.InputWidth * m.cfg.InputHeight
	if input == nil || len(input.Data) != expected {
		got := 0
		if input != nil {
			got = len(input.Data)
		}
		return nil, fmt.Errorf("%w: input tensor has wrong size: got %d, expected %d", ErrInference, got, expected)
	}

	return out, nil
}

// Close is a no-op for the mock implementation
func (m *MockEngine) Close() error {
	return nil
}

// SetError configures the mock to return an error on subsequent Run calls
func (m *MockEngine) SetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldError = true
	m.ErrorMessage = msg
}

// ClearError clears any configured error
func (m *MockEngine) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldError = false
	m.ErrorMessage = ""
}

// Calls returns the number of Run invocations so far.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Ensure MockEngine implements Engine at compile time
var _ Engine = (*MockEngine)(nil)
