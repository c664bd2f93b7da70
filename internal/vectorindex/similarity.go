package vectorindex

import "math"

// Similarity converts a cosine distance into a relevance score in [0,1].
// This is the normalization used by the retrieval/QA path.
//
// For distances in the normal cosine range (< 1.0) the score is the plain
// inverse, 1-d. Distances at or above 1.0 - which can occur when a store
// reports a squared-L2-like metric - decay exponentially, exp(-d/10), so the
// score stays bounded and strictly decreasing in distance. The result is
// clamped to [0,1] in either branch.
func Similarity(distance float64) float64 {
	var s float64
	if distance < 1.0 {
		s = 1 - distance
	} else {
		s = math.Exp(-distance / 10)
	}
	return clamp01(s)
}

// ReciprocalSimilarity is the alternate score normalization, 1/(1+d), used
// only by the plain vector search surface (no answer generation). The two
// formulas are never mixed within one result set.
func ReciprocalSimilarity(distance float64) float64 {
	return clamp01(1 / (1 + distance))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
