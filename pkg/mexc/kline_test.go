package mexc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestParseKlineList
func TestParseKlineList(t *testing.T) {
	raw := KlinesResponse{
		Time:  []int64{1700000000, 1700000060, 1700000120},
		Open:  []float64{1, 2, 3},
		High:  []float64{2, 3, 4},
		Low:   []float64{0.5, 1.5, 2.5},
		Close: []float64{1.5, 2.5, math.NaN()},
		Vol:   []float64{10, 20, 30},
	}

	out := ParseKlineList("BTC_USDT", Interval1Min, raw)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1700000000000), out[0].OpenTime)
	assert.Equal(t, 20.0, out[1].Volume)
	assert.Equal(t, "BTC_USDT", out[1].Symbol)
}

// go test -v --run TestParseKlineListShortColumns
func TestParseKlineListShortColumns(t *testing.T) {
	raw := KlinesResponse{
		Time:   []int64{1700000000, 1700000060},
		Open:   []float64{1, 2},
		High:   []float64{2, 3},
		Low:    []float64{0.5, 1.5},
		Close:  []float64{1.5},
		Amount: []float64{7, 8},
	}

	out := ParseKlineList("BTC_USDT", Interval1Min, raw)
	require.Len(t, out, 1)
	assert.Equal(t, 7.0, out[0].Volume)
}
