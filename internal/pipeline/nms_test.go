// internal/pipeline/nms_test.go
package pipeline

import (
	"math"
	"testing"
)

func det(label string, confidence float32, box Box) Detection {
	return Detection{Box: box, Label: label, Confidence: confidence}
}

func TestIoU_ZeroOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
	}{
		{"disjoint", Box{0, 0, 10, 10}, Box{20, 20, 10, 10}},
		{"edge touching", Box{0, 0, 10, 10}, Box{10, 0, 10, 10}},
		{"corner touching", Box{0, 0, 10, 10}, Box{10, 10, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IoU(tt.a, tt.b); got != 0 {
				t.Errorf("IoU = %f, expected 0", got)
			}
		})
	}
}

func TestIoU_IdenticalBoxes(t *testing.T) {
	box := Box{5, 5, 30, 40}
	if got := IoU(box, box); got != 1 {
		t.Errorf("IoU of identical boxes = %f, expected 1", got)
	}
}

func TestIoU_Symmetric(t *testing.T) {
	pairs := []struct{ a, b Box }{
		{Box{0, 0, 10, 10}, Box{5, 5, 10, 10}},
		{Box{0, 0, 100, 60}, Box{0, 0, 100, 100}},
		{Box{3, 7, 1, 2}, Box{100, 100, 5, 5}},
	}
	for _, p := range pairs {
		if IoU(p.a, p.b) != IoU(p.b, p.a) {
			t.Errorf("IoU(%v,%v) != IoU(%v,%v)", p.a, p.b, p.b, p.a)
		}
	}
}

func TestIoU_ZeroUnion(t *testing.T) {
	a := Box{5, 5, 0, 0}
	b := Box{5, 5, 0, 0}
	if got := IoU(a, b); got != 0 {
		t.Errorf("IoU with zero union area = %f, expected 0", got)
	}
}

func TestIoU_KnownValue(t *testing.T) {
	// intersection 100x60 = 6000, union 10000 + 6000 - 6000 = 10000.
	a := Box{0, 0, 100, 100}
	b := Box{0, 0, 100, 60}
	if got := IoU(a, b); math.Abs(float64(got)-0.6) > 1e-6 {
		t.Errorf("IoU = %f, expected 0.6", got)
	}
}

func TestSuppress_OverlappingSameLabel(t *testing.T) {
	// Two "person" boxes with IoU 0.6 against a 0.45 threshold: only the
	// higher-confidence box survives.
	candidates := []Detection{
		det("person", 0.70, Box{0, 0, 100, 60}),
		det("person", 0.92, Box{0, 0, 100, 100}),
	}

	kept := Suppress(candidates, 0.45)
	if len(kept) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(kept))
	}
	if kept[0].Confidence != 0.92 {
		t.Errorf("Kept confidence = %f, expected 0.92", kept[0].Confidence)
	}
}

func TestSuppress_DifferentLabelsNeverSuppress(t *testing.T) {
	// Same overlap (IoU 0.6) but different labels: both survive.
	candidates := []Detection{
		det("person", 0.92, Box{0, 0, 100, 100}),
		det("chair", 0.70, Box{0, 0, 100, 60}),
	}

	kept := Suppress(candidates, 0.45)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(kept))
	}
}

func TestSuppress_OutputOrderAndSize(t *testing.T) {
	candidates := []Detection{
		det("person", 0.5, Box{0, 0, 10, 10}),
		det("person", 0.9, Box{200, 200, 10, 10}),
		det("chair", 0.7, Box{400, 400, 10, 10}),
		det("person", 0.6, Box{600, 600, 10, 10}),
	}

	kept := Suppress(candidates, 0.45)
	if len(kept) > len(candidates) {
		t.Fatalf("Output size %d exceeds input size %d", len(kept), len(candidates))
	}
	for i := 1; i < len(kept); i++ {
		if kept[i].Confidence > kept[i-1].Confidence {
			t.Errorf("Kept detections not confidence-descending at index %d", i)
		}
	}
	// Nothing overlaps here, so all survive.
	if len(kept) != 4 {
		t.Errorf("Expected all 4 non-overlapping detections kept, got %d", len(kept))
	}
}

func TestSuppress_StableForEqualConfidence(t *testing.T) {
	// Equal confidences, no overlap: original relative order preserved.
	first := det("person", 0.8, Box{0, 0, 10, 10})
	second := det("person", 0.8, Box{500, 500, 10, 10})

	kept := Suppress([]Detection{first, second}, 0.45)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(kept))
	}
	if kept[0].Box != first.Box || kept[1].Box != second.Box {
		t.Error("Stable sort violated for equal confidences")
	}
}

func TestSuppress_DominanceAmongOverlapping(t *testing.T) {
	// Three mutually overlapping "person" boxes: the best suppresses the
	// rest, and every kept confidence dominates every discarded one.
	candidates := []Detection{
		det("person", 0.55, Box{2, 2, 100, 100}),
		det("person", 0.95, Box{0, 0, 100, 100}),
		det("person", 0.75, Box{1, 1, 100, 100}),
	}

	kept := Suppress(candidates, 0.45)
	if len(kept) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(kept))
	}
	if kept[0].Confidence != 0.95 {
		t.Errorf("Kept confidence = %f, expected 0.95", kept[0].Confidence)
	}
}

func TestSuppress_Empty(t *testing.T) {
	if got := Suppress(nil, 0.45); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

func TestSuppress_DoesNotMutateInput(t *testing.T) {
	candidates := []Detection{
		det("person", 0.5, Box{0, 0, 10, 10}),
		det("person", 0.9, Box{0, 0, 10, 10}),
	}
	Suppress(candidates, 0.45)

	if candidates[0].Confidence != 0.5 || candidates[1].Confidence != 0.9 {
		t.Error("Suppress reordered the caller's slice")
	}
}
