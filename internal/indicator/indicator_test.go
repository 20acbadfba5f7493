package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rising(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// go test -v --run TestRSIWarmup
func TestRSIWarmup(t *testing.T) {
	for _, v := range RSI(rising(13, 100), 14) {
		assert.True(t, math.IsNaN(v))
	}
	for _, v := range RSI(rising(14, 100), 14) {
		assert.True(t, math.IsNaN(v))
	}

	out := RSI(rising(15, 100), 14)
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d", i)
	}
	assert.Equal(t, 100.0, out[14])
}

// go test -v --run TestRSIMonotonic
func TestRSIMonotonic(t *testing.T) {
	out := RSI(rising(21, 100), 14)
	assert.Equal(t, 100.0, Last(out))
}

// go test -v --run TestRSIReference
func TestRSIReference(t *testing.T) {
	closes := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08,
		45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22, 45.64,
	}
	out := RSI(closes, 14)

	assert.InDelta(t, 70.46413502109705, out[14], 1e-9)
	assert.InDelta(t, 66.24961855355505, out[15], 1e-9)
	assert.InDelta(t, 57.91502067008556, out[19], 1e-9)
}

// go test -v --run TestRSIFlat
func TestRSIFlat(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 10
	}
	assert.Equal(t, 50.0, Last(RSI(flat, 14)))
}

// go test -v --run TestMACDRisingSeries
func TestMACDRisingSeries(t *testing.T) {
	line, sig, hist := MACD(rising(21, 100), 12, 26, 9)
	require.Len(t, hist, 21)

	assert.True(t, math.IsNaN(hist[0]))
	assert.True(t, math.IsNaN(line[0]))
	assert.True(t, math.IsNaN(sig[0]))

	last := Last(hist)
	assert.Greater(t, last, 0.0)
	assert.Greater(t, last, hist[1])
	assert.InDelta(t, 0.0638, hist[1], 1e-3)
	assert.Greater(t, Last(line), Last(sig))
}

// go test -v --run TestEMA
func TestEMA(t *testing.T) {
	out := EMA([]float64{1, 2, 3}, 3) // alpha = 0.5
	assert.Equal(t, []float64{1, 1.5, 2.25}, out)

	out = EMA([]float64{math.NaN(), 4, math.NaN(), 6}, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 4.0, out[1])
	assert.Equal(t, 4.0, out[2])
	assert.Equal(t, 5.0, out[3])
}

// go test -v --run TestSlope
func TestSlope(t *testing.T) {
	out := Slope(rising(8, 0), 5)
	for i := 0; i < 5; i++ {
		assert.True(t, math.IsNaN(out[i]))
	}
	assert.InDelta(t, 1.0, out[5], 1e-12)
	assert.InDelta(t, 1.0, out[7], 1e-12)
}

// go test -v --run TestBollinger
func TestBollinger(t *testing.T) {
	closes := rising(20, 1) // 1..20
	upper, middle, lower := Bollinger(closes, 20, 2)

	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(upper[i]), "index %d", i)
	}
	assert.InDelta(t, 10.5, middle[19], 1e-9)
	assert.InDelta(t, 22.032562594670797, upper[19], 1e-6)
	assert.InDelta(t, -1.0325625946707966, lower[19], 1e-6)

	width := Bandwidth(upper, middle, lower)
	assert.InDelta(t, (22.032562594670797+1.0325625946707966)/10.5, width[19], 1e-6)

	u, m, l := Bollinger(rising(10, 1), 20, 2)
	assert.True(t, math.IsNaN(Last(u)) && math.IsNaN(Last(m)) && math.IsNaN(Last(l)))
}

// go test -v --run TestADXTrend
func TestADXTrend(t *testing.T) {
	const n, period = 40, 14
	high, low, cl := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		cl[i] = 100 + float64(i)
		high[i] = cl[i] + 1
		low[i] = cl[i] - 1
	}

	out := ADX(high, low, cl, period)
	for i := 0; i < 2*period-1; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d", i)
	}
	assert.InDelta(t, 100.0, Last(out), 1e-6)

	short := ADX(high[:2*period-1], low[:2*period-1], cl[:2*period-1], period)
	assert.True(t, math.IsNaN(Last(short)))
}

// go test -v --run TestVolumeRatio
func TestVolumeRatio(t *testing.T) {
	vol := make([]float64, 20)
	for i := range vol {
		vol[i] = 10
	}
	vol[19] = 48 // avg = (19*10+48)/20 = 11.9

	out := VolumeRatio(vol, 20)
	assert.True(t, math.IsNaN(out[18]))
	assert.InDelta(t, 48/11.9, out[19], 1e-9)

	assert.True(t, math.IsNaN(Last(VolumeRatio(make([]float64, 20), 20))), "zero average is undefined")
}

// go test -v --run TestStandardSet
func TestStandardSet(t *testing.T) {
	n := 60
	s := Series{Close: rising(n, 100), Open: rising(n, 99.5), High: rising(n, 101), Low: rising(n, 99), Volume: make([]float64, n)}
	for i := range s.Volume {
		s.Volume[i] = 5
	}

	v := Compute(s, Standard(DefaultParams()))

	rsi, ok := v.Get(NameRSI)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)

	fast, ok := v.Get(NameEMAFast)
	require.True(t, ok)
	slow, ok := v.Get(NameEMASlow)
	require.True(t, ok)
	assert.Greater(t, fast, slow)

	slope, ok := v.Get(NameEMAFastSlope)
	require.True(t, ok)
	assert.Greater(t, slope, 0.0)

	ratio, ok := v.Get(NameVolumeRatio)
	require.True(t, ok)
	assert.InDelta(t, 1.0, ratio, 1e-9)

	_, ok = v.Get(NameADX)
	assert.True(t, ok)

	short := Compute(Series{Close: rising(5, 1), High: rising(5, 2), Low: rising(5, 0), Volume: rising(5, 1)}, Standard(DefaultParams()))
	_, ok = short.Get(NameRSI)
	assert.False(t, ok)
	_, ok = short.Get(NameBBUpper)
	assert.False(t, ok)
	_, ok = short.Get("unknown")
	assert.False(t, ok)
}

// go test -v --run TestStandardWarmUp
func TestStandardWarmUp(t *testing.T) {
	p := DefaultParams()
	at := func(n int) Values {
		return Compute(Series{Close: rising(n, 100), High: rising(n, 101), Low: rising(n, 99), Volume: rising(n, 1)}, Standard(p))
	}
	defined := func(v Values, name string) bool {
		_, ok := v.Get(name)
		return ok
	}

	one := at(1)
	for _, name := range []string{NameEMAFast, NameEMASlow, NameEMAFastSlope, NameMACD, NameMACDHist, NameMACDHistPrev} {
		assert.False(t, defined(one, name), name)
	}
	assert.True(t, defined(one, NameClose))

	assert.False(t, defined(at(p.EMAFast-1), NameEMAFast))
	assert.True(t, defined(at(p.EMAFast), NameEMAFast))
	assert.False(t, defined(at(p.EMASlow-1), NameEMASlow))
	assert.True(t, defined(at(p.EMASlow), NameEMASlow))

	assert.False(t, defined(at(p.EMASlow+p.SlopeLookback-1), NameEMAFastSlope))
	assert.True(t, defined(at(p.EMASlow+p.SlopeLookback), NameEMAFastSlope))

	v := at(p.MACDSlow - 1)
	assert.False(t, defined(v, NameMACDHist))
	v = at(p.MACDSlow)
	assert.True(t, defined(v, NameMACDHist))
	assert.False(t, defined(v, NameMACDHistPrev))
	assert.True(t, defined(at(p.MACDSlow+1), NameMACDHistPrev))
}
