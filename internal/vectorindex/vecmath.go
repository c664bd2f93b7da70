package vectorindex

import "math"

// dotProduct computes the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// norm computes the L2 norm (magnitude) of a vector.
func norm(v []float32) float32 {
	return float32(math.Sqrt(float64(dotProduct(v, v))))
}

// cosineSimilarity computes cosine similarity between two vectors.
// Returns 1 for identical directions, 0 for perpendicular, -1 for opposite.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	dot := dotProduct(a, b)
	normA := norm(a)
	normB := norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// cosineDistance converts cosine similarity to a distance metric.
// Returns 0 for identical vectors, 2 for opposite vectors.
func cosineDistance(a, b []float32) float32 {
	return 1 - cosineSimilarity(a, b)
}
