// Package scoring turns per-timeframe indicator values into a 0-5 composite
// score and a LONG/SHORT/NEUTRAL decision.
package scoring

import (
	"klinewatch/internal/indicator"
	"klinewatch/internal/mexc/memorystore"
	"klinewatch/pkg/mexc"
)

type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// Reason is one non-zero rule contribution.
type Reason struct {
	Interval mexc.KlineInterval `json:"interval"`
	Rule     string             `json:"rule"`
	Points   float64            `json:"points"`
	Text     string             `json:"text"`
}

type TimeframeScore struct {
	Interval mexc.KlineInterval `json:"interval"`
	Weight   float64            `json:"weight"`
	Score    float64            `json:"score"`
}

type ScoreRecord struct {
	Symbol          string           `json:"symbol"`
	TimeframeScores []TimeframeScore `json:"timeframes"`
	Composite       float64          `json:"composite"`
	Direction       Direction        `json:"direction"`
	Trending        bool             `json:"trending"`
	// Gate names the check that downgraded a LONG/SHORT to NEUTRAL, if any.
	Gate    string   `json:"gate,omitempty"`
	Reasons []Reason `json:"reasons"`
}

const (
	GateRegime       = "regime"
	GateConfirmation = "confirmation"
)

type Timeframe struct {
	Interval mexc.KlineInterval
	Weight   float64
}

type Config struct {
	Timeframes         []Timeframe
	RegimeInterval     mexc.KlineInterval
	ADXThreshold       float64
	BandwidthThreshold float64
	LongThreshold      float64
	ShortThreshold     float64
	Params             indicator.Params
	Rules              []Rule
}

func DefaultConfig() Config {
	return Config{
		Timeframes: []Timeframe{
			{Interval: mexc.Interval15Min, Weight: 1},
			{Interval: mexc.Interval60Min, Weight: 2},
			{Interval: mexc.Interval4Hour, Weight: 3},
		},
		RegimeInterval:     mexc.Interval4Hour,
		ADXThreshold:       20,
		BandwidthThreshold: 0.02,
		LongThreshold:      3.5,
		ShortThreshold:     2.0,
		Params:             indicator.DefaultParams(),
		Rules:              DefaultRules(),
	}
}

type Scorer struct {
	cfg        Config
	indicators []indicator.Indicator
}

func NewScorer(cfg Config) *Scorer {
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	return &Scorer{cfg: cfg, indicators: indicator.Standard(cfg.Params)}
}

// Intervals lists every interval the scorer reads: the weighted timeframes
// plus the regime timeframe.
func (s *Scorer) Intervals() []mexc.KlineInterval {
	out := make([]mexc.KlineInterval, 0, len(s.cfg.Timeframes)+1)
	seen := make(map[mexc.KlineInterval]bool)
	for _, tf := range s.cfg.Timeframes {
		if !seen[tf.Interval] {
			seen[tf.Interval] = true
			out = append(out, tf.Interval)
		}
	}
	if s.cfg.RegimeInterval != "" && !seen[s.cfg.RegimeInterval] {
		out = append(out, s.cfg.RegimeInterval)
	}
	return out
}

// Score evaluates every configured timeframe present in series. It returns
// false when no timeframe yields a single defined rule ("no signal").
func (s *Scorer) Score(symbol string, series map[mexc.KlineInterval]indicator.Series) (ScoreRecord, bool) {
	rec := ScoreRecord{Symbol: symbol, Direction: Neutral}

	var weighted, totalWeight float64
	for _, tf := range s.cfg.Timeframes {
		ser, ok := series[tf.Interval]
		if !ok || ser.Len() == 0 || tf.Weight <= 0 {
			continue
		}
		score, reasons, ok := s.timeframeScore(tf.Interval, indicator.Compute(ser, s.indicators))
		if !ok {
			continue
		}
		rec.TimeframeScores = append(rec.TimeframeScores, TimeframeScore{Interval: tf.Interval, Weight: tf.Weight, Score: score})
		rec.Reasons = append(rec.Reasons, reasons...)
		weighted += tf.Weight * score
		totalWeight += tf.Weight
	}
	if totalWeight == 0 {
		return rec, false
	}
	rec.Composite = weighted / totalWeight

	dir := Classify(rec.Composite, s.cfg.LongThreshold, s.cfg.ShortThreshold)
	rec.Trending = s.trending(series)
	switch {
	case dir == Neutral:
	case !rec.Trending:
		rec.Gate = GateRegime
	case !confirmed(dir, rec.Reasons):
		rec.Gate = GateConfirmation
	default:
		rec.Direction = dir
	}
	return rec, true
}

// timeframeScore maps the weighted rule contributions onto 0-5 with 2.5 as
// neutral. Rules with undefined inputs are excluded from both sums.
func (s *Scorer) timeframeScore(interval mexc.KlineInterval, v indicator.Values) (float64, []Reason, bool) {
	var sum, span float64
	var reasons []Reason
	for _, r := range s.cfg.Rules {
		if r.Weight() <= 0 || r.Max() <= 0 {
			continue
		}
		points, text, ok := r.Evaluate(v)
		if !ok {
			continue
		}
		sum += r.Weight() * points
		span += r.Weight() * r.Max()
		if points != 0 {
			reasons = append(reasons, Reason{Interval: interval, Rule: r.Name(), Points: points, Text: text})
		}
	}
	if span == 0 {
		return 0, nil, false
	}
	return 2.5 + 2.5*sum/span, reasons, true
}

// trending is the regime gate: ADX and Bollinger bandwidth of the regime
// timeframe must both reach their thresholds. Missing data is not trending.
func (s *Scorer) trending(series map[mexc.KlineInterval]indicator.Series) bool {
	ser, ok := series[s.cfg.RegimeInterval]
	if !ok || ser.Len() == 0 {
		return false
	}
	p := s.cfg.Params
	adx := indicator.Last(indicator.ADX(ser.High, ser.Low, ser.Close, p.ADXPeriod))
	width := indicator.Last(indicator.Bandwidth(indicator.Bollinger(ser.Close, p.BBPeriod, p.BBStdDev)))
	if !indicator.IsDefined(adx) || !indicator.IsDefined(width) {
		return false
	}
	return adx >= s.cfg.ADXThreshold && width >= s.cfg.BandwidthThreshold
}

// Classify applies the inclusive thresholds: composite >= long is LONG,
// composite <= short is SHORT.
func Classify(composite, long, short float64) Direction {
	switch {
	case composite >= long:
		return Long
	case composite <= short:
		return Short
	}
	return Neutral
}

// confirmed requires two distinct bullish rules for LONG and one bearish rule
// other than RSI for SHORT.
func confirmed(dir Direction, reasons []Reason) bool {
	switch dir {
	case Long:
		rules := make(map[string]bool)
		for _, r := range reasons {
			if r.Points > 0 {
				rules[r.Rule] = true
			}
		}
		return len(rules) >= 2
	case Short:
		for _, r := range reasons {
			if r.Points < 0 && r.Rule != RuleRSI {
				return true
			}
		}
	}
	return false
}

// SeriesFromCandles converts oldest-first candles to indicator columns.
func SeriesFromCandles(candles []memorystore.Candle) indicator.Series {
	n := len(candles)
	s := indicator.Series{
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i, c := range candles {
		s.Open[i], s.High[i], s.Low[i], s.Close[i], s.Volume[i] = c.Open, c.High, c.Low, c.Close, c.Volume
	}
	return s
}
