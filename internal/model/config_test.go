// internal/model/config_test.go
package model

import (
	"errors"
	"testing"
)

func TestNewConfig_Valid(t *testing.T) {
	cfg, err := NewConfig([]string{"person", "chair"}, 640, 640, 25200, 0.45, 0.45, "images", "output0")
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	if cfg.RowSize() != 7 {
		t.Errorf("RowSize = %d, expected 7 (4 box + 1 objectness + 2 classes)", cfg.RowSize())
	}
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		w, h    int
		rows    int
		conf    float32
		iou     float32
	}{
		{"zero width", []string{"person"}, 0, 640, 25200, 0.45, 0.45},
		{"negative height", []string{"person"}, 640, -1, 25200, 0.45, 0.45},
		{"zero rows", []string{"person"}, 640, 640, 0, 0.45, 0.45},
		{"empty classes", nil, 640, 640, 25200, 0.45, 0.45},
		{"empty class name", []string{"person", ""}, 640, 640, 25200, 0.45, 0.45},
		{"confidence above one", []string{"person"}, 640, 640, 25200, 1.5, 0.45},
		{"negative iou", []string{"person"}, 640, 640, 25200, 0.45, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.classes, tt.w, tt.h, tt.rows, tt.conf, tt.iou, "images", "output0")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Classes) != 80 {
		t.Errorf("Expected 80 COCO classes, got %d", len(cfg.Classes))
	}
	if cfg.RowSize() != 85 {
		t.Errorf("RowSize = %d, expected 85", cfg.RowSize())
	}
	if cfg.Classes[0] != "person" {
		t.Errorf("Class 0 = %q, expected person", cfg.Classes[0])
	}
}

func TestClassColor_Stable(t *testing.T) {
	a := Default()
	b := Default()

	for i := range a.Classes {
		if a.ClassColor(i) != b.ClassColor(i) {
			t.Fatalf("Class %d color differs between constructions: %s vs %s", i, a.ClassColor(i), b.ClassColor(i))
		}
	}

	// Out-of-range indices fall back to white rather than panicking.
	if a.ClassColor(-1) != "#ffffff" || a.ClassColor(len(a.Classes)) != "#ffffff" {
		t.Error("Expected white fallback for out-of-range class index")
	}
}

func TestClassColor_DistinctNeighbors(t *testing.T) {
	cfg := Default()
	for i := 0; i < len(cfg.Classes)-1; i++ {
		if cfg.ClassColor(i) == cfg.ClassColor(i+1) {
			t.Errorf("Classes %d and %d share color %s", i, i+1, cfg.ClassColor(i))
		}
	}
}
