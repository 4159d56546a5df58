package tracker

import (
	"context"
	"fmt"
	"time"

	"volumetracker/internal/market"
	"volumetracker/pkg/sina"

	"github.com/shopspring/decimal"
)

// Provider returns the full index quote table.
type Provider interface {
	GetIndexSpot(ctx context.Context) ([]sina.IndexQuote, error)
}

// SnapshotSource produces one Snapshot per call.
type SnapshotSource interface {
	Fetch(ctx context.Context) (market.Snapshot, error)
}

// turnover is reported in CNY and displayed in 亿元
var hundredMillion = decimal.NewFromInt(100_000_000)

// Fetcher extracts the two tracked indices from the provider table.
type Fetcher struct {
	provider Provider
	shCode   string
	szCode   string
	timeout  time.Duration
	clock    Clock
}

func NewFetcher(provider Provider, shCode, szCode string, timeout time.Duration, clock Clock) *Fetcher {
	return &Fetcher{
		provider: provider,
		shCode:   shCode,
		szCode:   szCode,
		timeout:  timeout,
		clock:    clock,
	}
}

// Fetch returns a Snapshot of both indices, or an error wrapping
// ErrProviderUnavailable or ErrDataMissing. It never returns a partial
// snapshot.
func (f *Fetcher) Fetch(ctx context.Context) (market.Snapshot, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	quotes, err := f.provider.GetIndexSpot(ctx)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	sh, ok := sina.FindBySymbol(quotes, f.shCode)
	if !ok {
		return market.Snapshot{}, fmt.Errorf("%w: %s not in %d rows", ErrDataMissing, f.shCode, len(quotes))
	}
	sz, ok := sina.FindBySymbol(quotes, f.szCode)
	if !ok {
		return market.Snapshot{}, fmt.Errorf("%w: %s not in %d rows", ErrDataMissing, f.szCode, len(quotes))
	}

	shTurnover := sh.Amount.Div(hundredMillion)
	szTurnover := sz.Amount.Div(hundredMillion)

	return market.Snapshot{
		Timestamp:   f.clock.Now().Truncate(time.Second),
		SH:          reading(sh, shTurnover),
		SZ:          reading(sz, szTurnover),
		TotalVolume: shTurnover.Add(szTurnover).InexactFloat64(),
	}, nil
}

func reading(q sina.IndexQuote, turnover decimal.Decimal) market.Reading {
	return market.Reading{
		Code:      q.Symbol,
		Price:     q.Trade.InexactFloat64(),
		ChangePct: q.ChangePercent.InexactFloat64(),
		Turnover:  turnover.InexactFloat64(),
	}
}
