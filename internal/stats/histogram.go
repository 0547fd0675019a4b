package stats

import (
	"math"
	"math/rand"
)

// Histogram is a fixed-width binning of one variable.
type Histogram struct {
	Edges []float64 // len(Probs)+1 ascending bin edges
	Probs []float64
}

// NewHistogram bins x into n equal-width bins spanning its range. A constant
// column yields a single degenerate bin.
func NewHistogram(x []float64, n int) Histogram {
	lo, hi := MinMax(x)
	if hi == lo || n < 1 {
		return Histogram{Edges: []float64{lo, hi}, Probs: []float64{1}}
	}
	h := Histogram{Edges: make([]float64, n+1), Probs: make([]float64, n)}
	width := (hi - lo) / float64(n)
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[n] = hi
	for _, v := range x {
		h.Probs[h.Bin(v)]++
	}
	Normalize(h.Probs)
	return h
}

// Bin returns the index of the bin holding v, clamped to the range.
func (h Histogram) Bin(v float64) int {
	n := len(h.Probs)
	lo, hi := h.Edges[0], h.Edges[n]
	if hi == lo {
		return 0
	}
	b := int(math.Floor((v - lo) / (hi - lo) * float64(n)))
	return max(0, min(n-1, b))
}

// Sample draws a bin by probability, then a value uniformly inside it.
func (h Histogram) Sample(rng *rand.Rand) float64 {
	b := Multinomial(rng, h.Probs)
	lo, hi := h.Edges[b], h.Edges[b+1]
	return lo + rng.Float64()*(hi-lo)
}

// Flatten returns edges and probabilities as one slice, edges first.
func (h Histogram) Flatten() []float64 {
	out := make([]float64, 0, len(h.Edges)+len(h.Probs))
	out = append(out, h.Edges...)
	return append(out, h.Probs...)
}

// UnflattenHistogram reverses Flatten for a histogram with n bins.
func UnflattenHistogram(flat []float64, n int) Histogram {
	return Histogram{
		Edges: append([]float64(nil), flat[:n+1]...),
		Probs: append([]float64(nil), flat[n+1:2*n+1]...),
	}
}
