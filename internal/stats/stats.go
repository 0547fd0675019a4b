// Package stats holds the small numeric routines the builtin estimators
// share: moments, histograms, categorical and noise sampling, a Cholesky
// factorisation and the Kaplan-Meier estimator.
package stats

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// ErrNotPositiveDefinite is returned by Cholesky for matrices it cannot
// factorise.
var ErrNotPositiveDefinite = errors.New("stats: matrix is not positive definite")

// MeanStd returns the mean and population standard deviation of x.
func MeanStd(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	for _, v := range x {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(x)))
}

// MinMax returns the smallest and largest value of x.
func MinMax(x []float64) (lo, hi float64) {
	if len(x) == 0 {
		return 0, 0
	}
	lo, hi = x[0], x[0]
	for _, v := range x[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Normalize scales w in place to sum to one. All-zero weights become uniform.
func Normalize(w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

// Multinomial draws an index with probability probs[i].
func Multinomial(rng *rand.Rand, probs []float64) int {
	r := rng.Float64()

	cumSum := 0.0
	for i, p := range probs {
		cumSum += p
		if r < cumSum {
			return i
		}
	}

	// Rounding errors.
	return len(probs) - 1
}

// LogSumExp returns log(sum(exp(x))) without overflow.
func LogSumExp(x []float64) float64 {
	maxVal := math.Inf(-1)
	for _, v := range x {
		maxVal = math.Max(maxVal, v)
	}
	if math.IsInf(maxVal, -1) {
		return maxVal
	}
	sum := 0.0
	for _, v := range x {
		sum += math.Exp(v - maxVal)
	}
	return maxVal + math.Log(sum)
}

// Laplace draws from a zero-mean Laplace distribution with the given scale.
func Laplace(rng *rand.Rand, scale float64) float64 {
	u := rng.Float64() - 0.5
	return -scale * math.Copysign(1, u) * math.Log(1-2*math.Abs(u))
}

// Covariance returns the population covariance matrix of rows around mean.
func Covariance(rows [][]float64, mean []float64) [][]float64 {
	d := len(mean)
	cov := make([][]float64, d)
	for i := range cov {
		cov[i] = make([]float64, d)
	}
	if len(rows) == 0 {
		return cov
	}
	for _, row := range rows {
		for i := 0; i < d; i++ {
			di := row[i] - mean[i]
			for j := i; j < d; j++ {
				cov[i][j] += di * (row[j] - mean[j])
			}
		}
	}
	n := float64(len(rows))
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			cov[i][j] /= n
			cov[j][i] = cov[i][j]
		}
	}
	return cov
}

// Cholesky returns the lower-triangular L with L*Lᵀ = a.
func Cholesky(a [][]float64) ([][]float64, error) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, ErrNotPositiveDefinite
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, nil
}

// MultivariateNormal draws mean + L*z with z standard normal.
func MultivariateNormal(rng *rand.Rand, mean []float64, l [][]float64) []float64 {
	z := make([]float64, len(mean))
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	out := make([]float64, len(mean))
	for i := range out {
		out[i] = mean[i]
		for k := 0; k <= i; k++ {
			out[i] += l[i][k] * z[k]
		}
	}
	return out
}

// Quantile returns the q-quantile of sorted x by linear interpolation.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// Sorted returns a sorted copy of x.
func Sorted(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}
