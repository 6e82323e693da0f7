// internal/pipeline/postprocess.go
package pipeline

import (
	"github.com/modelportal/detection-service/internal/model"
)

// Postprocess decodes raw model output rows into candidate detections in
// image pixel coordinates, filtered by confidence. Per row: rows whose
// objectness is at or below the threshold are rejected early; the best
// class is the per-class score argmax with ties broken by lowest index;
// the combined confidence is objectness times the best class score and
// must exceed the threshold.
//
// Box coordinates are rescaled from model-input pixels by a plain
// imageDimension/modelInputDimension factor per axis. This deliberately
// does not invert the letterbox padding applied during preprocessing, to
// stay coordinate-compatible with the portal front end that draws the
// boxes. Candidates are emitted in row order; sorting belongs to
// Suppress.
func Postprocess(raw *RawOutput, cfg *model.Config, imageWidth, imageHeight int, confThreshold float32) []Detection {
	if raw == nil || raw.Rows == 0 {
		return nil
	}

	scaleX := float32(imageWidth) / float32(cfg.InputWidth)
	scaleY := float32(imageHeight) / float32(cfg.InputHeight)
	numClasses := len(cfg.Classes)

	candidates := make([]Detection, 0, 32)
	for i := 0; i < raw.Rows; i++ {
		row := raw.Row(i)

		objectness := row[4]
		if objectness <= confThreshold {
			continue
		}

		bestClass := 0
		bestScore := row[5]
		for c := 1; c < numClasses; c++ {
			if row[5+c] > bestScore {
				bestScore = row[5+c]
				bestClass = c
			}
		}

		confidence := objectness * bestScore
		if confidence <= confThreshold {
			continue
		}

		centerX := row[0] * scaleX
		centerY := row[1] * scaleY
		width := max(row[2]*scaleX, 0)
		height := max(row[3]*scaleY, 0)

		candidates = append(candidates, Detection{
			Box: Box{
				Left:   centerX - width/2,
				Top:    centerY - height/2,
				Width:  width,
				Height: height,
			},
			Label:      cfg.Classes[bestClass],
			Confidence: confidence,
			Color:      cfg.ClassColor(bestClass),
		})
	}
	return candidates
}
