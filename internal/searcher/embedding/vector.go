// Package embedding provides the vector layer of hybrid search: a Provider
// seam for text encoders, a deterministic bag-of-words encoder, and cosine
// similarity over sparse vectors.
package embedding

import "math"

// Vector is a sparse token -> weight mapping. Vectors handed out by a
// Provider may be shared and must not be modified.
type Vector map[string]float64

// Magnitude returns the Euclidean norm of v.
func Magnitude(v Vector) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged.
func Normalize(v Vector) Vector {
	norm := Magnitude(v)
	if norm == 0 {
		return v
	}
	out := make(Vector, len(v))
	for k, w := range v {
		out[k] = w / norm
	}
	return out
}

// Cosine returns dot(a, b) / (|a| * |b|) over the union of keys, or 0 when
// either vector has zero magnitude.
func Cosine(a, b Vector) float64 {
	magA, magB := Magnitude(a), Magnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	// Keys missing from one side contribute 0 to the dot product, so
	// iterating the smaller map covers the union.
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for k, w := range small {
		dot += w * large[k]
	}
	return dot / (magA * magB)
}
