package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinewatch/internal/indicator"
	"klinewatch/internal/mexc/memorystore"
	"klinewatch/pkg/mexc"
)

type fixedRule struct {
	name   string
	points float64
	max    float64
	weight float64
	ok     bool
}

func (r fixedRule) Name() string    { return r.name }
func (r fixedRule) Weight() float64 { return r.weight }
func (r fixedRule) Max() float64    { return r.max }
func (r fixedRule) Evaluate(indicator.Values) (float64, string, bool) {
	return r.points, r.name, r.ok
}

// closeRule scores the last close itself, so each timeframe can be steered
// through its series.
type closeRule struct{}

func (closeRule) Name() string    { return "close" }
func (closeRule) Weight() float64 { return 1 }
func (closeRule) Max() float64    { return 2 }
func (closeRule) Evaluate(v indicator.Values) (float64, string, bool) {
	c, ok := v.Get(indicator.NameClose)
	return c, "close", ok
}

func trendSeries(n int) indicator.Series {
	s := indicator.Series{
		Open: make([]float64, n), High: make([]float64, n), Low: make([]float64, n),
		Close: make([]float64, n), Volume: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		s.Open[i], s.Close[i], s.High[i], s.Low[i], s.Volume[i] = c-0.5, c, c+1, c-1, 10
	}
	return s
}

func flatSeries(n int) indicator.Series {
	s := trendSeries(n)
	for i := 0; i < n; i++ {
		s.Open[i], s.Close[i], s.High[i], s.Low[i] = 100, 100, 101, 99
	}
	return s
}

func singleClose(c float64) indicator.Series {
	return indicator.Series{Open: []float64{c}, High: []float64{c}, Low: []float64{c}, Close: []float64{c}, Volume: []float64{1}}
}

func testConfig(rules ...Rule) Config {
	cfg := DefaultConfig()
	cfg.Timeframes = []Timeframe{{Interval: mexc.Interval15Min, Weight: 1}, {Interval: mexc.Interval60Min, Weight: 2}}
	cfg.Rules = rules
	return cfg
}

// go test -v --run TestClassify
func TestClassify(t *testing.T) {
	assert.Equal(t, Long, Classify(3.5, 3.5, 2.0))
	assert.Equal(t, Neutral, Classify(3.49, 3.5, 2.0))
	assert.Equal(t, Short, Classify(2.0, 3.5, 2.0))
	assert.Equal(t, Neutral, Classify(2.01, 3.5, 2.0))
	assert.Equal(t, Long, Classify(5, 3.5, 2.0))
	assert.Equal(t, Short, Classify(0, 3.5, 2.0))
}

// go test -v --run TestScoreNoSignal
func TestScoreNoSignal(t *testing.T) {
	s := NewScorer(DefaultConfig())

	_, ok := s.Score("BTC_USDT", nil)
	assert.False(t, ok)

	_, ok = s.Score("BTC_USDT", map[mexc.KlineInterval]indicator.Series{mexc.Interval15Min: {}})
	assert.False(t, ok)

	undefined := NewScorer(testConfig(fixedRule{name: "a", max: 2, weight: 1, ok: false}))
	rec, ok := undefined.Score("BTC_USDT", map[mexc.KlineInterval]indicator.Series{mexc.Interval15Min: singleClose(1)})
	assert.False(t, ok)
	assert.Equal(t, "BTC_USDT", rec.Symbol)
}

// go test -v --run TestTimeframeRenormalization
func TestTimeframeRenormalization(t *testing.T) {
	s := NewScorer(testConfig(
		fixedRule{name: "a", points: 2, max: 2, weight: 1, ok: true},
		fixedRule{name: "b", points: -2, max: 2, weight: 5, ok: false},
	))
	rec, ok := s.Score("X", map[mexc.KlineInterval]indicator.Series{mexc.Interval15Min: singleClose(1)})
	require.True(t, ok)
	require.Len(t, rec.TimeframeScores, 1)
	assert.Equal(t, 5.0, rec.TimeframeScores[0].Score)
	assert.Equal(t, 5.0, rec.Composite)
}

// go test -v --run TestCompositeWeighting
func TestCompositeWeighting(t *testing.T) {
	s := NewScorer(testConfig(closeRule{}))
	rec, ok := s.Score("X", map[mexc.KlineInterval]indicator.Series{
		mexc.Interval15Min: singleClose(2), // 5.0
		mexc.Interval60Min: singleClose(0), // 2.5
	})
	require.True(t, ok)
	require.Len(t, rec.TimeframeScores, 2)
	assert.InDelta(t, (1*5.0+2*2.5)/3, rec.Composite, 1e-12)

	rec, ok = s.Score("X", map[mexc.KlineInterval]indicator.Series{mexc.Interval60Min: singleClose(-2)})
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.Composite, "missing timeframe drops out of the weights")
}

// go test -v --run TestRegimeGate
func TestRegimeGate(t *testing.T) {
	s := NewScorer(testConfig(
		fixedRule{name: RuleMACD, points: 2, max: 2, weight: 1, ok: true},
		fixedRule{name: RuleEMA, points: 2, max: 2, weight: 1, ok: true},
	))
	base := map[mexc.KlineInterval]indicator.Series{mexc.Interval15Min: singleClose(1)}

	rec, ok := s.Score("X", base)
	require.True(t, ok)
	assert.Equal(t, Neutral, rec.Direction)
	assert.Equal(t, GateRegime, rec.Gate)
	assert.False(t, rec.Trending)

	base[mexc.Interval4Hour] = flatSeries(60)
	rec, _ = s.Score("X", base)
	assert.Equal(t, Neutral, rec.Direction)
	assert.Equal(t, GateRegime, rec.Gate)

	base[mexc.Interval4Hour] = trendSeries(60)
	rec, _ = s.Score("X", base)
	assert.True(t, rec.Trending)
	assert.Equal(t, Long, rec.Direction)
	assert.Empty(t, rec.Gate)
}

// go test -v --run TestConfirmationGuard
func TestConfirmationGuard(t *testing.T) {
	series := map[mexc.KlineInterval]indicator.Series{
		mexc.Interval15Min: singleClose(1),
		mexc.Interval4Hour: trendSeries(60),
	}

	tests := []struct {
		name  string
		rules []Rule
		want  Direction
		gate  string
	}{
		{
			name: "single bullish rule",
			rules: []Rule{
				fixedRule{name: RuleMACD, points: 2, max: 2, weight: 1, ok: true},
				fixedRule{name: RuleEMA, points: 0, max: 2, weight: 1, ok: true},
			},
			want: Neutral, gate: GateConfirmation,
		},
		{
			name: "two bullish rules",
			rules: []Rule{
				fixedRule{name: RuleMACD, points: 2, max: 2, weight: 1, ok: true},
				fixedRule{name: RuleEMA, points: 1, max: 2, weight: 1, ok: true},
			},
			want: Long,
		},
		{
			name: "bearish RSI only",
			rules: []Rule{
				fixedRule{name: RuleRSI, points: -2, max: 2, weight: 1, ok: true},
				fixedRule{name: RuleEMA, points: 0, max: 2, weight: 1, ok: true},
			},
			want: Neutral, gate: GateConfirmation,
		},
		{
			name: "bearish MACD",
			rules: []Rule{
				fixedRule{name: RuleRSI, points: 0, max: 2, weight: 1, ok: true},
				fixedRule{name: RuleMACD, points: -2, max: 2, weight: 1, ok: true},
			},
			want: Short,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := NewScorer(testConfig(tt.rules...)).Score("X", series)
			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Direction)
			assert.Equal(t, tt.gate, rec.Gate)
		})
	}
}

// go test -v --run TestDefaultRules
func TestDefaultRules(t *testing.T) {
	rsi := RSIRule{Oversold: 30, Overbought: 70, Mild: 40, W: 1}
	p, _, ok := rsi.Evaluate(indicator.Values{indicator.NameRSI: 25})
	assert.True(t, ok)
	assert.Equal(t, 2.0, p)
	p, _, _ = rsi.Evaluate(indicator.Values{indicator.NameRSI: 75})
	assert.Equal(t, -2.0, p)
	p, _, _ = rsi.Evaluate(indicator.Values{indicator.NameRSI: 50})
	assert.Equal(t, 0.0, p)
	_, _, ok = rsi.Evaluate(indicator.Values{indicator.NameRSI: math.NaN()})
	assert.False(t, ok)

	p, _, _ = MACDRule{W: 1}.Evaluate(indicator.Values{indicator.NameMACDHist: 0.5, indicator.NameMACDHistPrev: 0.2})
	assert.Equal(t, 2.0, p)
	p, _, _ = MACDRule{W: 1}.Evaluate(indicator.Values{indicator.NameMACDHist: 0.5, indicator.NameMACDHistPrev: 0.9})
	assert.Equal(t, 1.0, p)
	p, _, _ = MACDRule{W: 1}.Evaluate(indicator.Values{indicator.NameMACDHist: -0.5})
	assert.Equal(t, -1.0, p)

	p, _, _ = EMARule{W: 1}.Evaluate(indicator.Values{indicator.NameEMAFast: 11, indicator.NameEMASlow: 10, indicator.NameEMAFastSlope: 0.3})
	assert.Equal(t, 2.0, p)
	p, _, _ = EMARule{W: 1}.Evaluate(indicator.Values{indicator.NameEMAFast: 9, indicator.NameEMASlow: 10, indicator.NameEMAFastSlope: -0.3})
	assert.Equal(t, -2.0, p)

	bb := BollingerRule{Edge: 0.1, W: 1}
	p, _, _ = bb.Evaluate(indicator.Values{indicator.NameClose: 89, indicator.NameBBUpper: 110, indicator.NameBBLower: 90})
	assert.Equal(t, 2.0, p)
	p, _, _ = bb.Evaluate(indicator.Values{indicator.NameClose: 100, indicator.NameBBUpper: 110, indicator.NameBBLower: 90})
	assert.Equal(t, 0.0, p)
	p, _, _ = bb.Evaluate(indicator.Values{indicator.NameClose: 111, indicator.NameBBUpper: 110, indicator.NameBBLower: 90})
	assert.Equal(t, -2.0, p)

	vol := VolumeRule{Threshold: 1.5, W: 0.5}
	p, _, _ = vol.Evaluate(indicator.Values{indicator.NameVolumeRatio: 2, indicator.NameOpen: 1, indicator.NameClose: 2})
	assert.Equal(t, 1.0, p)
	p, _, _ = vol.Evaluate(indicator.Values{indicator.NameVolumeRatio: 1.2, indicator.NameOpen: 1, indicator.NameClose: 2})
	assert.Equal(t, 0.0, p)
}

// go test -v --run TestScoreDefaultEngine
func TestScoreDefaultEngine(t *testing.T) {
	s := NewScorer(DefaultConfig())
	assert.Equal(t, []mexc.KlineInterval{mexc.Interval15Min, mexc.Interval60Min, mexc.Interval4Hour}, s.Intervals())

	series := map[mexc.KlineInterval]indicator.Series{
		mexc.Interval15Min: trendSeries(60),
		mexc.Interval60Min: trendSeries(60),
		mexc.Interval4Hour: trendSeries(60),
	}
	rec, ok := s.Score("BTC_USDT", series)
	require.True(t, ok)
	require.Len(t, rec.TimeframeScores, 3)
	for _, tf := range rec.TimeframeScores {
		assert.GreaterOrEqual(t, tf.Score, 0.0)
		assert.LessOrEqual(t, tf.Score, 5.0)
	}
	assert.True(t, rec.Trending)
	assert.NotEmpty(t, rec.Reasons)
}

func TestSeriesFromCandles(t *testing.T) {
	s := SeriesFromCandles([]memorystore.Candle{
		{OpenTime: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{OpenTime: 2, Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
	})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1.5, 2.5}, s.Close)
	assert.Equal(t, []float64{10, 20}, s.Volume)
}

// go test -v --run TestScoreShortSeriesNoSignal
func TestScoreShortSeriesNoSignal(t *testing.T) {
	s := NewScorer(DefaultConfig())
	for _, n := range []int{1, 2, 5} {
		series := map[mexc.KlineInterval]indicator.Series{
			mexc.Interval15Min: trendSeries(n),
			mexc.Interval60Min: trendSeries(n),
			mexc.Interval4Hour: trendSeries(n),
		}
		rec, ok := s.Score("BTC_USDT", series)
		assert.False(t, ok, "%d bars", n)
		assert.Empty(t, rec.Reasons, "%d bars", n)
	}
}
