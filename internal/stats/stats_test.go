package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 2.0, std)
}

func TestMultinomial(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := make([]int, 3)
	for i := 0; i < 3000; i++ {
		counts[Multinomial(rng, []float64{0.2, 0.0, 0.8})]++
	}
	assert.Zero(t, counts[1])
	assert.InDelta(t, 0.8, float64(counts[2])/3000, 0.05)
}

func TestLogSumExp(t *testing.T) {
	assert.InDelta(t, math.Log(3), LogSumExp([]float64{0, 0, 0}), 1e-12)
	assert.InDelta(t, 1000+math.Log(2), LogSumExp([]float64{1000, 1000}), 1e-9)
}

func TestCholesky(t *testing.T) {
	a := [][]float64{{4, 2}, {2, 3}}
	l, err := Cholesky(a)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum := 0.0
			for k := 0; k < 2; k++ {
				sum += l[i][k] * l[j][k]
			}
			assert.InDelta(t, a[i][j], sum, 1e-12)
		}
	}

	_, err = Cholesky([][]float64{{1, 2}, {2, 1}})
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
}

func TestHistogram(t *testing.T) {
	h := NewHistogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, 5)
	require.Len(t, h.Edges, 6)
	assert.Equal(t, 0.0, h.Edges[0])
	assert.Equal(t, 10.0, h.Edges[5])
	assert.InDelta(t, 1.0, h.Probs[0]+h.Probs[1]+h.Probs[2]+h.Probs[3]+h.Probs[4], 1e-12)
	assert.Equal(t, 4, h.Bin(10))

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		v := h.Sample(rng)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}

	back := UnflattenHistogram(h.Flatten(), 5)
	assert.Equal(t, h, back)

	constant := NewHistogram([]float64{3, 3, 3}, 4)
	assert.Equal(t, 3.0, constant.Sample(rng))
}

func TestKaplanMeier(t *testing.T) {
	times := []float64{1, 2, 2, 3, 4}
	events := []float64{1, 1, 0, 1, 0}
	km := NewKaplanMeier(times, events)

	assert.Equal(t, []float64{1, 2, 3}, km.Times)
	assert.InDelta(t, 0.8, km.Survival[0], 1e-12)
	assert.InDelta(t, 0.6, km.Survival[1], 1e-12)
	assert.InDelta(t, 0.3, km.Survival[2], 1e-12)
	assert.Equal(t, 1.0, km.At(0.5))
	assert.InDelta(t, 0.6, km.At(2.5), 1e-12)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		if v, ok := km.Sample(rng); ok {
			assert.Contains(t, km.Times, v)
		}
	}

	for i := 0; i < 50; i++ {
		v, ok := km.SampleObserved(rng)
		require.True(t, ok)
		assert.Contains(t, km.Times, v)
	}
	_, ok := KaplanMeier{}.SampleObserved(rng)
	assert.False(t, ok)
}
