// internal/inference/engine.go
package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/modelportal/detection-service/internal/model"
	"github.com/modelportal/detection-service/internal/pipeline"
)

// ORTEngine wraps an ONNX Runtime session for thread-safe inference.
// It implements the Engine interface. Exactly one session is loaded per
// process; the handle is owned by the caller and passed into the
// detection loop, never stored globally.
type ORTEngine struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	cfg     *model.Config
}

// NewFromBytes creates an ORTEngine by loading the model directly from
// its raw ONNX bytes. How the bytes were obtained is the caller's
// concern.
func NewFromBytes(modelBytes []byte, cfg *model.Config) (*ORTEngine, error) {
	if len(modelBytes) == 0 {
		return nil, fmt.Errorf("%w: empty model bytes", ErrModelLoad)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("%w: initialize ONNX environment: %v", ErrModelLoad, err)
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		modelBytes,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		nil, // Use default session options
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create ONNX session: %v", ErrModelLoad, err)
	}

	return &ORTEngine{session: session, cfg: cfg}, nil
}

// Run executes one inference call. The output tensor is pre-allocated to
// the model's fixed (1, OutputRows, RowSize) shape and its data copied
// out before the tensor is destroyed.
func (e *ORTEngine) Run(input *pipeline.Tensor) (*pipeline.RawOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("%w: session is closed", ErrInference)
	}
	if input == nil || len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: empty input tensor", ErrInference)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: create input tensor: %v", ErrInference, err)
	}
	defer inputTensor.Destroy()

	rows := e.cfg.OutputRows
	rowSize := e.cfg.RowSize()
	outputShape := ort.NewShape(1, int64(rows), int64(rowSize))
	outputTensor, err := ort.NewTensor(outputShape, make([]float32, rows*rowSize))
	if err != nil {
		return nil, fmt.Errorf("%w: create output tensor: %v", ErrInference, err)
	}
	defer outputTensor.Destroy()

	err = e.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	// Copy out of the tensor's backing buffer before the deferred Destroy.
	data := make([]float32, rows*rowSize)
	copy(data, outputTensor.GetData())

	return &pipeline.RawOutput{Data: data, Rows: rows, RowSize: rowSize}, nil
}

// Close releases the ONNX session resources.
func (e *ORTEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		if err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}

	return ort.DestroyEnvironment()
}

// Ensure ORTEngine implements Engine at compile time
var _ Engine = (*ORTEngine)(nil)
