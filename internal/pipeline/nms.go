// internal/pipeline/nms.go
package pipeline

import "sort"

// Suppress performs class-aware non-maximum suppression: candidates are
// sorted by confidence descending (stable, so equal confidences keep
// their relative order), then each surviving candidate discards every
// lower-ranked candidate of the same label whose IoU with it exceeds the
// threshold. Candidates of different labels never suppress each other.
// The kept candidates are returned in confidence-descending order.
func Suppress(candidates []Detection, iouThreshold float32) []Detection {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Detection, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	discarded := make([]bool, len(sorted))
	kept := make([]Detection, 0, len(sorted))
	for i := range sorted {
		if discarded[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if discarded[j] || sorted[j].Label != sorted[i].Label {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				discarded[j] = true
			}
		}
	}
	return kept
}

// IoU computes Intersection over Union of two axis-aligned boxes. A
// non-positive intersection in either axis yields 0, as does a zero
// union area.
func IoU(a, b Box) float32 {
	interLeft := max(a.Left, b.Left)
	interTop := max(a.Top, b.Top)
	interRight := min(a.Left+a.Width, b.Left+b.Width)
	interBottom := min(a.Top+a.Height, b.Top+b.Height)

	interW := interRight - interLeft
	interH := interBottom - interTop
	if interW <= 0 || interH <= 0 {
		return 0
	}

	interArea := interW * interH
	unionArea := a.Width*a.Height + b.Width*b.Height - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}
