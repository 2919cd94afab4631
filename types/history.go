package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalData is a columnar bundle of OHLCV series for one symbol,
// ordered oldest to newest. It is an immutable snapshot taken as of a
// context timestamp.
type HistoricalData struct {
	Timestamps []time.Time
	Opens      []decimal.Decimal
	Highs      []decimal.Decimal
	Lows       []decimal.Decimal
	Closes     []decimal.Decimal
	Volumes    []int64
}

// HistoricalDataFromBars builds a columnar snapshot from a bar sequence.
func HistoricalDataFromBars(bars []OHLCBar) *HistoricalData {
	h := &HistoricalData{
		Timestamps: make([]time.Time, 0, len(bars)),
		Opens:      make([]decimal.Decimal, 0, len(bars)),
		Highs:      make([]decimal.Decimal, 0, len(bars)),
		Lows:       make([]decimal.Decimal, 0, len(bars)),
		Closes:     make([]decimal.Decimal, 0, len(bars)),
		Volumes:    make([]int64, 0, len(bars)),
	}
	for _, b := range bars {
		h.Timestamps = append(h.Timestamps, b.Timestamp)
		h.Opens = append(h.Opens, b.Open)
		h.Highs = append(h.Highs, b.High)
		h.Lows = append(h.Lows, b.Low)
		h.Closes = append(h.Closes, b.Close)
		h.Volumes = append(h.Volumes, b.Volume)
	}
	return h
}

// Len returns the number of bars in the snapshot.
func (h *HistoricalData) Len() int {
	return len(h.Timestamps)
}
