package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_VisitsEveryIndex(t *testing.T) {
	configs := map[string]Config{
		"sequential": Sequential(),
		"parallel":   {Enabled: true, NumWorkers: 4, MinChunkSize: 1},
		"default":    DefaultConfig(),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			const n = 100
			var hits [n]int32
			For(n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			}, cfg)
			for i := range hits {
				assert.Equal(t, int32(1), hits[i], "index %d", i)
			}
		})
	}
}

func TestForErr_ReturnsLowestIndexError(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 1}
	errLow := errors.New("low")
	errHigh := errors.New("high")

	var calls int32
	err := ForErr(50, func(i int) error {
		atomic.AddInt32(&calls, 1)
		switch i {
		case 7:
			return errLow
		case 40:
			return errHigh
		}
		return nil
	}, cfg)

	assert.Equal(t, errLow, err)
	assert.Equal(t, int32(50), calls)
}

func TestForErr_Empty(t *testing.T) {
	assert.NoError(t, ForErr(0, func(int) error { return errors.New("never") }, DefaultConfig()))
}
