package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stratlab/types"
)

type selectBarsParams struct {
	Symbols   []string
	Start     time.Time
	End       time.Time
	Timeframe string
	Limit     int
	Offset    int
}

type barRow struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

type barsRepository interface {
	SelectBars(ctx context.Context, p selectBarsParams) ([]barRow, error)
	CountBars(ctx context.Context, p selectBarsParams) (int64, error)
}

// GetBars returns one page of bars for the symbol set and inclusive date
// range, ordered by timestamp ascending then symbol ascending. An empty
// page is not an error; it marks the end of the range.
func (db *Database) GetBars(ctx context.Context, symbols []string, start, end time.Time, tf types.Timeframe, limit, offset int) ([]types.OHLCBar, error) {
	rows, err := db.bars.SelectBars(ctx, selectBarsParams{
		Symbols:   symbols,
		Start:     start,
		End:       end,
		Timeframe: string(tf),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("select bars: %w", err)
	}
	return convertBars(rows, tf), nil
}

// GetBarCount returns the total number of bars the range would yield. Used
// for progress tracking; a failure here is not fatal to a run.
func (db *Database) GetBarCount(ctx context.Context, symbols []string, start, end time.Time, tf types.Timeframe) (int64, error) {
	count, err := db.bars.CountBars(ctx, selectBarsParams{
		Symbols:   symbols,
		Start:     start,
		End:       end,
		Timeframe: string(tf),
	})
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return count, nil
}

func convertBars(rows []barRow, tf types.Timeframe) []types.OHLCBar {
	bars := make([]types.OHLCBar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, types.OHLCBar{
			Symbol:    r.Symbol,
			Timestamp: r.Timestamp,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			Timeframe: tf,
		})
	}
	return bars
}

// pgBars is the pgx-backed row reader.
type pgBars struct {
	pool *pgxpool.Pool
}

const selectBarsSQL = `
SELECT symbol, timestamp, open, high, low, close, volume
FROM ohlc_bars
WHERE symbol = ANY($1)
  AND timestamp >= $2
  AND timestamp <= $3
  AND timeframe = $4
ORDER BY timestamp ASC, symbol ASC
LIMIT $5 OFFSET $6`

const countBarsSQL = `
SELECT COUNT(*)
FROM ohlc_bars
WHERE symbol = ANY($1)
  AND timestamp >= $2
  AND timestamp <= $3
  AND timeframe = $4`

func (q pgBars) SelectBars(ctx context.Context, p selectBarsParams) ([]barRow, error) {
	rows, err := q.pool.Query(ctx, selectBarsSQL, p.Symbols, p.Start, p.End, p.Timeframe, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []barRow
	for rows.Next() {
		var r barRow
		if err := rows.Scan(&r.Symbol, &r.Timestamp, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q pgBars) CountBars(ctx context.Context, p selectBarsParams) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, countBarsSQL, p.Symbols, p.Start, p.End, p.Timeframe).Scan(&count)
	return count, err
}
