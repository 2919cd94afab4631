package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Timeframe string

const (
	M1  Timeframe = "1m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	M30 Timeframe = "30m"
	H1  Timeframe = "1h"
	D1  Timeframe = "1d"
)

var timeframeToDuration = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  time.Minute * 5,
	M15: time.Minute * 15,
	M30: time.Minute * 30,
	H1:  time.Hour,
	D1:  time.Hour * 24,
}

// Duration returns the length of one bar at this timeframe, or zero for an
// unknown timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeToDuration[tf]
}

// ParseTimeframe converts a string like "5m" or "1d" into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeToDuration[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// OHLCBar is a single OHLCV aggregate for one symbol over one timeframe.
// Identity is (Symbol, Timestamp, Timeframe); bars are immutable once
// produced.
type OHLCBar struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	Timeframe Timeframe
}

// EquityPoint is one entry of an equity curve: total portfolio value at a
// processed timestamp.
type EquityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}
