package indicator

// Indicator computes one scalar from a series: the value at the last bar,
// or NaN when the series is too short.
type Indicator interface {
	Name() string
	Compute(s Series) float64
}

// Values maps indicator names to their latest values.
type Values map[string]float64

// Get returns the named value and whether it is defined.
func (v Values) Get(name string) (float64, bool) {
	x, ok := v[name]
	if !ok || !IsDefined(x) {
		return 0, false
	}
	return x, true
}

// Func adapts a plain function to Indicator.
type Func struct {
	name string
	fn   func(Series) float64
}

func NewFunc(name string, fn func(Series) float64) Func {
	return Func{name: name, fn: fn}
}

func (f Func) Name() string { return f.name }

func (f Func) Compute(s Series) float64 {
	if s.Len() == 0 {
		return Undefined()
	}
	return f.fn(s)
}

// Compute evaluates every indicator against s.
func Compute(s Series, inds []Indicator) Values {
	out := make(Values, len(inds))
	for _, ind := range inds {
		out[ind.Name()] = ind.Compute(s)
	}
	return out
}

// Names of the standard indicator set.
const (
	NameOpen         = "open"
	NameClose        = "close"
	NameRSI          = "rsi"
	NameMACD         = "macd"
	NameMACDSignal   = "macd_signal"
	NameMACDHist     = "macd_hist"
	NameMACDHistPrev = "macd_hist_prev"
	NameEMAFast      = "ema_fast"
	NameEMASlow      = "ema_slow"
	NameEMAFastSlope = "ema_fast_slope"
	NameBBUpper      = "bb_upper"
	NameBBMiddle     = "bb_middle"
	NameBBLower      = "bb_lower"
	NameBBWidth      = "bb_width"
	NameVolumeRatio  = "volume_ratio"
	NameADX          = "adx"
)

// Params holds the periods of the standard set.
type Params struct {
	RSIPeriod     int
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	EMAFast       int
	EMASlow       int
	SlopeLookback int
	BBPeriod      int
	BBStdDev      float64
	VolumePeriod  int
	ADXPeriod     int
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:     14,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		EMAFast:       9,
		EMASlow:       21,
		SlopeLookback: 5,
		BBPeriod:      20,
		BBStdDev:      2,
		VolumePeriod:  20,
		ADXPeriod:     14,
	}
}

// WarmUp reports undefined until s holds at least bars candles, then defers
// to fn. EMA and MACD are defined from the first bars but carry no trend
// information until their spans are covered.
func WarmUp(bars int, fn func(Series) float64) func(Series) float64 {
	return func(s Series) float64 {
		if s.Len() < bars {
			return Undefined()
		}
		return fn(s)
	}
}

// Standard returns the indicator set the scorer consumes.
func Standard(p Params) []Indicator {
	macdAt := func(back int, pick func(line, sig, hist []float64) []float64) func(Series) float64 {
		return WarmUp(p.MACDSlow+back, func(s Series) float64 {
			return At(pick(MACD(s.Close, p.MACDFast, p.MACDSlow, p.MACDSignal)), back)
		})
	}
	bbAt := func(pick func(u, m, l []float64) []float64) func(Series) float64 {
		return func(s Series) float64 {
			return Last(pick(Bollinger(s.Close, p.BBPeriod, p.BBStdDev)))
		}
	}

	return []Indicator{
		NewFunc(NameOpen, func(s Series) float64 { return Last(s.Open) }),
		NewFunc(NameClose, func(s Series) float64 { return Last(s.Close) }),
		NewFunc(NameRSI, func(s Series) float64 { return Last(RSI(s.Close, p.RSIPeriod)) }),
		NewFunc(NameMACD, macdAt(0, func(l, _, _ []float64) []float64 { return l })),
		NewFunc(NameMACDSignal, macdAt(0, func(_, sg, _ []float64) []float64 { return sg })),
		NewFunc(NameMACDHist, macdAt(0, func(_, _, h []float64) []float64 { return h })),
		NewFunc(NameMACDHistPrev, macdAt(1, func(_, _, h []float64) []float64 { return h })),
		NewFunc(NameEMAFast, WarmUp(p.EMAFast, func(s Series) float64 { return Last(EMA(s.Close, p.EMAFast)) })),
		NewFunc(NameEMASlow, WarmUp(p.EMASlow, func(s Series) float64 { return Last(EMA(s.Close, p.EMASlow)) })),
		NewFunc(NameEMAFastSlope, WarmUp(p.EMASlow+p.SlopeLookback, func(s Series) float64 {
			return Last(Slope(EMA(s.Close, p.EMAFast), p.SlopeLookback))
		})),
		NewFunc(NameBBUpper, bbAt(func(u, _, _ []float64) []float64 { return u })),
		NewFunc(NameBBMiddle, bbAt(func(_, m, _ []float64) []float64 { return m })),
		NewFunc(NameBBLower, bbAt(func(_, _, l []float64) []float64 { return l })),
		NewFunc(NameBBWidth, func(s Series) float64 {
			return Last(Bandwidth(Bollinger(s.Close, p.BBPeriod, p.BBStdDev)))
		}),
		NewFunc(NameVolumeRatio, func(s Series) float64 { return Last(VolumeRatio(s.Volume, p.VolumePeriod)) }),
		NewFunc(NameADX, func(s Series) float64 { return Last(ADX(s.High, s.Low, s.Close, p.ADXPeriod)) }),
	}
}
