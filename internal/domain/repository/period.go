package repository

// Period is a Binance futures statistics bucket (open interest, long/short ratio).
type Period string

const (
	Period5m  Period = "5m"
	Period15m Period = "15m"
	Period30m Period = "30m"
	Period1h  Period = "1h"
	Period4h  Period = "4h"
	Period1d  Period = "1d"
)

// IsValidPeriod returns true if p is accepted by the statistics endpoints.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period5m, Period15m, Period30m, Period1h, Period4h, Period1d:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default statistics period.
func DefaultPeriod() Period { return Period1h }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}
