package scoring

import (
	"fmt"

	"klinewatch/internal/indicator"
)

// Rule turns the latest indicator values of one timeframe into a bounded
// contribution in [-Max, Max]. ok is false when an input is undefined; the
// rule then drops out of that timeframe's normalization.
type Rule interface {
	Name() string
	Weight() float64
	Max() float64
	Evaluate(v indicator.Values) (points float64, reason string, ok bool)
}

// Rule names, also used as Reason.Rule.
const (
	RuleRSI       = "rsi"
	RuleMACD      = "macd"
	RuleEMA       = "ema"
	RuleBollinger = "bollinger"
	RuleVolume    = "volume"
)

// RSIRule: below Oversold +2, below Mild +1, above Overbought -2, above
// 100-Mild -1.
type RSIRule struct {
	Oversold   float64
	Overbought float64
	Mild       float64
	W          float64
}

func (r RSIRule) Name() string    { return RuleRSI }
func (r RSIRule) Weight() float64 { return r.W }
func (r RSIRule) Max() float64    { return 2 }

func (r RSIRule) Evaluate(v indicator.Values) (float64, string, bool) {
	rsi, ok := v.Get(indicator.NameRSI)
	if !ok {
		return 0, "", false
	}
	switch {
	case rsi < r.Oversold:
		return 2, fmt.Sprintf("RSI oversold %.1f", rsi), true
	case rsi > r.Overbought:
		return -2, fmt.Sprintf("RSI overbought %.1f", rsi), true
	case rsi < r.Mild:
		return 1, fmt.Sprintf("RSI weak %.1f", rsi), true
	case rsi > 100-r.Mild:
		return -1, fmt.Sprintf("RSI strong %.1f", rsi), true
	}
	return 0, "", true
}

// MACDRule scores the histogram sign, doubled when it moves away from zero.
// Without a previous histogram value only the sign counts.
type MACDRule struct {
	W float64
}

func (r MACDRule) Name() string    { return RuleMACD }
func (r MACDRule) Weight() float64 { return r.W }
func (r MACDRule) Max() float64    { return 2 }

func (r MACDRule) Evaluate(v indicator.Values) (float64, string, bool) {
	hist, ok := v.Get(indicator.NameMACDHist)
	if !ok {
		return 0, "", false
	}
	prev, hasPrev := v.Get(indicator.NameMACDHistPrev)
	switch {
	case hist > 0 && hasPrev && hist > prev:
		return 2, "MACD histogram positive and rising", true
	case hist > 0:
		return 1, "MACD histogram positive", true
	case hist < 0 && hasPrev && hist < prev:
		return -2, "MACD histogram negative and falling", true
	case hist < 0:
		return -1, "MACD histogram negative", true
	}
	return 0, "", true
}

// EMARule compares the fast and slow EMA; a slope agreeing with the cross
// doubles the contribution.
type EMARule struct {
	W float64
}

func (r EMARule) Name() string    { return RuleEMA }
func (r EMARule) Weight() float64 { return r.W }
func (r EMARule) Max() float64    { return 2 }

func (r EMARule) Evaluate(v indicator.Values) (float64, string, bool) {
	fast, ok1 := v.Get(indicator.NameEMAFast)
	slow, ok2 := v.Get(indicator.NameEMASlow)
	if !ok1 || !ok2 {
		return 0, "", false
	}
	slope, hasSlope := v.Get(indicator.NameEMAFastSlope)
	switch {
	case fast > slow && hasSlope && slope > 0:
		return 2, "EMA fast above slow, rising", true
	case fast > slow:
		return 1, "EMA fast above slow", true
	case fast < slow && hasSlope && slope < 0:
		return -2, "EMA fast below slow, falling", true
	case fast < slow:
		return -1, "EMA fast below slow", true
	}
	return 0, "", true
}

// BollingerRule has a mean-reversion bias: a close outside the lower band is
// bullish, outside the upper band bearish. Edge is the fraction of the band
// width treated as near a band.
type BollingerRule struct {
	Edge float64
	W    float64
}

func (r BollingerRule) Name() string    { return RuleBollinger }
func (r BollingerRule) Weight() float64 { return r.W }
func (r BollingerRule) Max() float64    { return 2 }

func (r BollingerRule) Evaluate(v indicator.Values) (float64, string, bool) {
	c, ok1 := v.Get(indicator.NameClose)
	upper, ok2 := v.Get(indicator.NameBBUpper)
	lower, ok3 := v.Get(indicator.NameBBLower)
	if !ok1 || !ok2 || !ok3 || upper <= lower {
		return 0, "", false
	}
	pos := (c - lower) / (upper - lower)
	switch {
	case pos < 0:
		return 2, "close below lower band", true
	case pos > 1:
		return -2, "close above upper band", true
	case pos < r.Edge:
		return 1, "close near lower band", true
	case pos > 1-r.Edge:
		return -1, "close near upper band", true
	}
	return 0, "", true
}

// VolumeRule confirms the direction of the last bar when its volume exceeds
// Threshold times the average.
type VolumeRule struct {
	Threshold float64
	W         float64
}

func (r VolumeRule) Name() string    { return RuleVolume }
func (r VolumeRule) Weight() float64 { return r.W }
func (r VolumeRule) Max() float64    { return 1 }

func (r VolumeRule) Evaluate(v indicator.Values) (float64, string, bool) {
	ratio, ok1 := v.Get(indicator.NameVolumeRatio)
	o, ok2 := v.Get(indicator.NameOpen)
	c, ok3 := v.Get(indicator.NameClose)
	if !ok1 || !ok2 || !ok3 {
		return 0, "", false
	}
	if ratio <= r.Threshold {
		return 0, "", true
	}
	switch {
	case c > o:
		return 1, fmt.Sprintf("volume %.1fx confirms up bar", ratio), true
	case c < o:
		return -1, fmt.Sprintf("volume %.1fx confirms down bar", ratio), true
	}
	return 0, "", true
}

// DefaultRules is the standard rule set with its default thresholds.
func DefaultRules() []Rule {
	return []Rule{
		RSIRule{Oversold: 30, Overbought: 70, Mild: 40, W: 1},
		MACDRule{W: 1},
		EMARule{W: 1},
		BollingerRule{Edge: 0.1, W: 1},
		VolumeRule{Threshold: 1.5, W: 0.5},
	}
}
