// internal/model/config.go
package model

import (
	"errors"
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidConfig is returned when a model configuration is malformed.
// Configuration problems are construction-time failures only; a validated
// Config never fails at runtime.
var ErrInvalidConfig = errors.New("invalid model config")

// Config describes the fixed tensor geometry and class vocabulary of a
// loaded detection model. It is immutable after construction and shared
// read-only by every pipeline stage.
type Config struct {
	// InputWidth and InputHeight are the model's fixed input dimensions.
	// The input tensor shape is always (1, 3, InputHeight, InputWidth).
	InputWidth  int
	InputHeight int

	// OutputRows is the number of detection rows in the model output.
	// Each row holds 4 box parameters, 1 objectness score and one score
	// per class, so the output shape is (1, OutputRows, 5+len(Classes)).
	OutputRows int

	// Classes maps class index to human-readable label.
	Classes []string

	// DefaultConfidence and DefaultIoU seed the runtime-tunable thresholds.
	DefaultConfidence float32
	DefaultIoU        float32

	// InputName and OutputName are the graph node names the inference
	// engine binds tensors to.
	InputName  string
	OutputName string

	colors []string
}

// NewConfig validates the given parameters and returns an immutable Config
// with per-class display colors assigned.
func NewConfig(classes []string, inputWidth, inputHeight, outputRows int, defaultConfidence, defaultIoU float32, inputName, outputName string) (*Config, error) {
	cfg := &Config{
		InputWidth:        inputWidth,
		InputHeight:       inputHeight,
		OutputRows:        outputRows,
		Classes:           classes,
		DefaultConfidence: defaultConfidence,
		DefaultIoU:        defaultIoU,
		InputName:         inputName,
		OutputName:        outputName,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.colors = assignColors(len(classes))
	return cfg, nil
}

// Default returns the configuration for the bundled YOLOv5s COCO model:
// 640x640 input, 25200 output rows, 80 classes.
func Default() *Config {
	cfg, err := NewConfig(cocoClasses, 640, 640, 25200, 0.45, 0.45, "images", "output0")
	if err != nil {
		// cocoClasses and the constants above are known-good.
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("%w: non-positive input dimensions %dx%d", ErrInvalidConfig, c.InputWidth, c.InputHeight)
	}
	if c.OutputRows <= 0 {
		return fmt.Errorf("%w: non-positive output rows %d", ErrInvalidConfig, c.OutputRows)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("%w: empty class list", ErrInvalidConfig)
	}
	for i, name := range c.Classes {
		if name == "" {
			return fmt.Errorf("%w: empty class name at index %d", ErrInvalidConfig, i)
		}
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		return fmt.Errorf("%w: confidence threshold %f outside [0,1]", ErrInvalidConfig, c.DefaultConfidence)
	}
	if c.DefaultIoU < 0 || c.DefaultIoU > 1 {
		return fmt.Errorf("%w: IoU threshold %f outside [0,1]", ErrInvalidConfig, c.DefaultIoU)
	}
	if c.InputName == "" || c.OutputName == "" {
		return fmt.Errorf("%w: input/output tensor names must be set", ErrInvalidConfig)
	}
	return nil
}

// RowSize is the number of values per output row: 4 box parameters,
// objectness, then one score per class.
func (c *Config) RowSize() int {
	return 5 + len(c.Classes)
}

// ClassColor returns the stable display color (hex, e.g. "#e6194b") for
// the given class index.
func (c *Config) ClassColor(index int) string {
	if index < 0 || index >= len(c.colors) {
		return "#ffffff"
	}
	return c.colors[index]
}

// assignColors spaces hues around the wheel with the golden angle so that
// neighboring class indices get visually distant colors. The assignment
// depends only on the index, so it is stable for the process lifetime.
func assignColors(n int) []string {
	colors := make([]string, n)
	for i := 0; i < n; i++ {
		hue := math.Mod(float64(i)*137.508, 360.0)
		colors[i] = colorful.Hsv(hue, 0.78, 0.92).Hex()
	}
	return colors
}
