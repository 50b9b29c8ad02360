package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
	"github.com/alejandrodnm/backtester/internal/ports"
)

// CachedMarketData decora un ports.MarketData con lectura read-through
// de series diarias: GetDailyPriceSeries consulta primero la cache y
// solo va al provider en miss. El resto de operaciones delega sin tocar.
type CachedMarketData struct {
	inner ports.MarketData
	cache ports.SeriesCache
}

var _ ports.MarketData = (*CachedMarketData)(nil)

// NewCachedMarketData envuelve el provider con la cache dada.
func NewCachedMarketData(inner ports.MarketData, cache ports.SeriesCache) *CachedMarketData {
	return &CachedMarketData{inner: inner, cache: cache}
}

func (c *CachedMarketData) GetFinancials(ctx context.Context, symbol string, asOf time.Time) (domain.FinancialFiling, domain.FinancialFiling, error) {
	return c.inner.GetFinancials(ctx, symbol, asOf)
}

func (c *CachedMarketData) GetPrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	return c.inner.GetPrice(ctx, symbol, date)
}

func (c *CachedMarketData) GetTickerDate(ctx context.Context, ticker domain.Ticker, date time.Time) (domain.TickerDate, error) {
	return c.inner.GetTickerDate(ctx, ticker, date)
}

func (c *CachedMarketData) IsMarketClosed(ctx context.Context, date time.Time) (bool, error) {
	return c.inner.IsMarketClosed(ctx, date)
}

// GetDailyPriceSeries sirve desde cache si el rango está cubierto por un
// fetch anterior. Un fallo de la cache nunca rompe el run: se loguea y
// se sigue con el provider.
func (c *CachedMarketData) GetDailyPriceSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	series, ok, err := c.cache.GetSeries(ctx, symbol, start, end)
	if err != nil {
		slog.Warn("series cache read failed, falling back to provider", "symbol", symbol, "err", err)
	} else if ok {
		slog.Debug("series cache hit", "symbol", symbol, "points", len(series))
		return series, nil
	}

	series, err = c.inner.GetDailyPriceSeries(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutSeries(ctx, symbol, start, end, series); err != nil {
		slog.Warn("series cache write failed", "symbol", symbol, "err", err)
	}
	return series, nil
}
