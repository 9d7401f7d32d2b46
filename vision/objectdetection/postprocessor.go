package objectdetection

import (
	"sort"
)

// Postprocessor defines a function that filters/modifies on an incoming array of Detections.
type Postprocessor func([]Detection) []Detection

// NewAreaFilter returns a function that filters out detections below a certain normalized area.
func NewAreaFilter(area float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewScoreFilter returns a function that filters out detections below a certain confidence.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Score >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewOverlapSuppression returns a function that performs greedy non-maximum suppression per
// class: detections are visited by descending score, and one is dropped when its IoU with an
// already kept detection of the same class exceeds the threshold. The result is ordered by
// descending score.
func NewOverlapSuppression(threshold float64) Postprocessor {
	return func(in []Detection) []Detection {
		sorted := make([]Detection, len(in))
		copy(sorted, in)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Score > sorted[j].Score
		})

		out := make([]Detection, 0, len(sorted))
		for _, d := range sorted {
			suppressed := false
			for _, kept := range out {
				if kept.Class == d.Class && IoU(kept.Box, d.Box) > threshold {
					suppressed = true
					break
				}
			}
			if !suppressed {
				out = append(out, d)
			}
		}
		return out
	}
}

// Chain applies the postprocessors in order.
func Chain(steps ...Postprocessor) Postprocessor {
	return func(in []Detection) []Detection {
		for _, step := range steps {
			in = step(in)
		}
		return in
	}
}

// NewPostFilter is the standard filter for raw model output: drop low scores, drop boxes
// smaller than minArea, then suppress overlaps.
func NewPostFilter(scoreThreshold, overlapThreshold, minArea float64) Postprocessor {
	steps := []Postprocessor{NewScoreFilter(scoreThreshold)}
	if minArea > 0 {
		steps = append(steps, NewAreaFilter(minArea))
	}
	steps = append(steps, NewOverlapSuppression(overlapThreshold))
	return Chain(steps...)
}
