package memorystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"klinewatch/pkg/mexc"
)

// ErrMalformedTick is returned for payloads that cannot become a valid Candle.
var ErrMalformedTick = errors.New("malformed tick")

// Volume arrives under "v" on some feeds and "q" on others; "v" wins.
var volumeKeys = []string{"v", "q"}

// ParseTick converts a raw payload into a Candle: the open time is
// normalized to milliseconds and the OHLCV invariants are checked. Any
// failure yields ErrMalformedTick and no Candle.
func ParseTick(raw RawTick) (Candle, error) {
	t, ok := toInt64(raw["t"])
	if !ok || t <= 0 {
		return Candle{}, fmt.Errorf("%w: open time %v", ErrMalformedTick, raw["t"])
	}

	var c Candle
	c.OpenTime = mexc.NormalizeTimestamp(t)

	fields := []struct {
		key string
		dst *float64
	}{
		{"o", &c.Open}, {"h", &c.High}, {"l", &c.Low}, {"c", &c.Close},
	}
	for _, f := range fields {
		v, ok := toFloat(raw[f.key])
		if !ok {
			return Candle{}, fmt.Errorf("%w: field %q=%v", ErrMalformedTick, f.key, raw[f.key])
		}
		*f.dst = v
	}

	found := false
	for _, key := range volumeKeys {
		if v, ok := toFloat(raw[key]); ok {
			c.Volume = v
			found = true
			break
		}
	}
	if !found {
		return Candle{}, fmt.Errorf("%w: missing volume", ErrMalformedTick)
	}

	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// Validate checks high >= max(open, close), low <= min(open, close) and volume >= 0.
func (c Candle) Validate() error {
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("%w: range o=%v h=%v l=%v c=%v", ErrMalformedTick, c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("%w: negative volume %v", ErrMalformedTick, c.Volume)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		if err == nil {
			return n, true
		}
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err == nil {
			return n, true
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
