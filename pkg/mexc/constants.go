package mexc

import (
	"fmt"
	"time"
)

// KlineInterval is the canonical interval name used across the module ("1m", "4h", ...).
type KlineInterval string

// KlineIntervalMeta holds the exchange and DB spellings plus the window length of an interval.
type KlineIntervalMeta struct {
	APIValue string
	DBValue  string
	Minutes  int
}

const (
	Interval1Min    KlineInterval = "1m"
	Interval5Min    KlineInterval = "5m"
	Interval15Min   KlineInterval = "15m"
	Interval30Min   KlineInterval = "30m"
	Interval60Min   KlineInterval = "1h"
	Interval4Hour   KlineInterval = "4h"
	Interval8Hour   KlineInterval = "8h"
	IntervalDaily   KlineInterval = "1d"
	IntervalWeekly  KlineInterval = "1w"
	IntervalMonthly KlineInterval = "1M"
)

var validKlineIntervals = map[KlineInterval]KlineIntervalMeta{
	Interval1Min:    {APIValue: "Min1", DBValue: "1m", Minutes: 1},
	Interval5Min:    {APIValue: "Min5", DBValue: "5m", Minutes: 5},
	Interval15Min:   {APIValue: "Min15", DBValue: "15m", Minutes: 15},
	Interval30Min:   {APIValue: "Min30", DBValue: "30m", Minutes: 30},
	Interval60Min:   {APIValue: "Min60", DBValue: "1h", Minutes: 60},
	Interval4Hour:   {APIValue: "Hour4", DBValue: "4h", Minutes: 240},
	Interval8Hour:   {APIValue: "Hour8", DBValue: "8h", Minutes: 480},
	IntervalDaily:   {APIValue: "Day1", DBValue: "1d", Minutes: 1440},
	IntervalWeekly:  {APIValue: "Week1", DBValue: "1w", Minutes: 10080},
	IntervalMonthly: {APIValue: "Month1", DBValue: "1M", Minutes: 43200}, // 30 days, not calendar months
}

var apiToInterval = func() map[string]KlineInterval {
	m := make(map[string]KlineInterval, len(validKlineIntervals))
	for k, meta := range validKlineIntervals {
		m[meta.APIValue] = k
	}
	return m
}()

// IsValid checks if the KlineInterval is a valid predefined interval
func (k KlineInterval) IsValid() bool {
	_, ok := validKlineIntervals[k]
	return ok
}

// Meta returns the table entry for k; the zero value for unknown intervals.
func (k KlineInterval) Meta() KlineIntervalMeta {
	return validKlineIntervals[k]
}

// APIValue is the exchange spelling, e.g. "Min15".
func (k KlineInterval) APIValue() string {
	return validKlineIntervals[k].APIValue
}

// Duration is the fixed window length of the interval.
func (k KlineInterval) Duration() time.Duration {
	return time.Duration(validKlineIntervals[k].Minutes) * time.Minute
}

// DurationMs is Duration in epoch milliseconds.
func (k KlineInterval) DurationMs() int64 {
	return int64(validKlineIntervals[k].Minutes) * 60_000
}

// ParseKlineInterval accepts either the canonical ("15m") or exchange ("Min15") spelling.
func ParseKlineInterval(s string) (KlineInterval, error) {
	if k := KlineInterval(s); k.IsValid() {
		return k, nil
	}
	if k, ok := apiToInterval[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("invalid KlineInterval: %s", s)
}

// ParseKlineIntervals parses every entry of ss, failing on the first bad one.
func ParseKlineIntervals(ss []string) ([]KlineInterval, error) {
	out := make([]KlineInterval, 0, len(ss))
	for _, s := range ss {
		k, err := ParseKlineInterval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// AllIntervals lists the supported intervals from shortest to longest.
func AllIntervals() []KlineInterval {
	return []KlineInterval{
		Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval60Min,
		Interval4Hour, Interval8Hour, IntervalDaily, IntervalWeekly, IntervalMonthly,
	}
}
