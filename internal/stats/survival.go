package stats

import (
	"math/rand"
	"sort"
)

// KaplanMeier is a step-function survival estimate.
type KaplanMeier struct {
	Times    []float64 // distinct event times, ascending
	Survival []float64 // S(t) just after Times[i]
}

// NewKaplanMeier estimates survival from durations and event indicators
// (1 = event observed, 0 = censored).
func NewKaplanMeier(times, events []float64) KaplanMeier {
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })

	var km KaplanMeier
	atRisk := len(times)
	s := 1.0
	for i := 0; i < len(idx); {
		t := times[idx[i]]
		deaths, removed := 0, 0
		for ; i < len(idx) && times[idx[i]] == t; i++ {
			if events[idx[i]] == 1 {
				deaths++
			}
			removed++
		}
		if deaths > 0 {
			s *= 1 - float64(deaths)/float64(atRisk)
			km.Times = append(km.Times, t)
			km.Survival = append(km.Survival, s)
		}
		atRisk -= removed
	}
	return km
}

// At returns S(t).
func (km KaplanMeier) At(t float64) float64 {
	i := sort.SearchFloat64s(km.Times, t)
	if i < len(km.Times) && km.Times[i] == t {
		return km.Survival[i]
	}
	if i == 0 {
		return 1
	}
	return km.Survival[i-1]
}

// Sample draws an event time by inverse transform. ok is false when the draw
// falls beyond the last observed event, meaning the sample survives past the
// follow-up window.
func (km KaplanMeier) Sample(rng *rand.Rand) (t float64, ok bool) {
	u := rng.Float64()
	for i, s := range km.Survival {
		if s <= u {
			return km.Times[i], true
		}
	}
	return 0, false
}

// SampleObserved draws an event time conditional on the event happening
// within follow-up. ok is false when the estimate has no events.
func (km KaplanMeier) SampleObserved(rng *rand.Rand) (t float64, ok bool) {
	if len(km.Times) == 0 {
		return 0, false
	}
	last := km.Survival[len(km.Survival)-1]
	u := last + rng.Float64()*(1-last)
	for i, s := range km.Survival {
		if s <= u {
			return km.Times[i], true
		}
	}
	return km.Times[len(km.Times)-1], true
}
