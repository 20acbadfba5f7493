package indicator

// MACD returns the MACD line EMA(fast)-EMA(slow), its EMA(signal) and the
// histogram line-signal. The first bar is undefined: every EMA equals the
// seed there, so the difference carries no information yet.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line = undefinedSlice(n)
	sig = undefinedSlice(n)
	hist = undefinedSlice(n)
	if n < 2 || fast <= 0 || slow <= 0 || signal <= 0 {
		return line, sig, hist
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = fastEMA[i] - slowEMA[i]
	}
	rawSig := EMA(raw, signal)

	for i := 1; i < n; i++ {
		line[i] = raw[i]
		sig[i] = rawSig[i]
		hist[i] = raw[i] - rawSig[i]
	}
	return line, sig, hist
}
