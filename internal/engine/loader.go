package engine

import (
	"context"
	"fmt"
	"time"

	"stratlab/internal/broker"
	"stratlab/types"
)

// BarSource is the historical data source contract. It returns bars ordered
// by timestamp ascending, then symbol ascending within a tied timestamp,
// one offset/limit page at a time. It must tolerate concurrent readers so
// parallel backtest runs can share one store.
type BarSource interface {
	GetBars(ctx context.Context, symbols []string, start, end time.Time, tf types.Timeframe, limit, offset int) ([]types.OHLCBar, error)
	GetBarCount(ctx context.Context, symbols []string, start, end time.Time, tf types.Timeframe) (int64, error)
}

// Loader paginates a BarSource into bounded batches. It is a lazy, finite,
// forward-only sequence: Next returns batches until the range is exhausted
// and cannot be rewound. Callers that need to replay construct a new
// Loader.
type Loader struct {
	src       BarSource
	symbols   []string
	start     time.Time
	end       time.Time
	timeframe types.Timeframe
	batchSize int

	offset int
	done   bool
}

// NewLoader creates a Loader over the inclusive [start, end] range.
func NewLoader(src BarSource, symbols []string, start, end time.Time, tf types.Timeframe, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		src:       src,
		symbols:   symbols,
		start:     start,
		end:       end,
		timeframe: tf,
		batchSize: batchSize,
	}
}

// Next returns the next batch of bars, or nil once the range is exhausted.
// An empty range yields zero batches without error; a store failure wraps
// broker.ErrDataUnavailable.
func (l *Loader) Next(ctx context.Context) ([]types.OHLCBar, error) {
	if l.done {
		return nil, nil
	}

	batch, err := l.src.GetBars(ctx, l.symbols, l.start, l.end, l.timeframe, l.batchSize, l.offset)
	if err != nil {
		l.done = true
		return nil, fmt.Errorf("%w: %v", broker.ErrDataUnavailable, err)
	}
	if len(batch) == 0 {
		l.done = true
		return nil, nil
	}

	l.offset += len(batch)
	if len(batch) < l.batchSize {
		l.done = true
	}
	return batch, nil
}
