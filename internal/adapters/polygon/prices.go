package polygon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// GetPrice devuelve el cierre del ticker en la fecha dada. Para "hoy"
// usa el endpoint de último cierre; para fechas pasadas usa el endpoint
// de open-close y, si el mercado estuvo cerrado ese día, camina hacia
// atrás un día de calendario por intento hasta maxPriceWalkbackDays
// antes de fallar con ErrPriceNotFound.
func (c *Client) GetPrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	if date.IsZero() || domain.SameDay(date, time.Now()) {
		return c.latestClose(ctx, symbol)
	}

	day := domain.Day(date)
	for walked := 0; walked <= maxPriceWalkbackDays; walked++ {
		price, err := c.closeOn(ctx, symbol, day)
		if err == nil {
			if walked > 0 {
				slog.Debug("price resolved via walkback",
					"symbol", symbol,
					"requested", domain.Day(date).Format(domain.DateLayout),
					"resolved", day.Format(domain.DateLayout),
				)
			}
			return price, nil
		}
		if !errors.Is(err, domain.ErrPriceNotFound) {
			return 0, err
		}
		day = day.AddDate(0, 0, -1)
	}

	return 0, fmt.Errorf("polygon.GetPrice: %s: no trading day within %d days of %s: %w",
		symbol, maxPriceWalkbackDays, date.Format(domain.DateLayout), domain.ErrPriceNotFound)
}

// latestClose consulta el endpoint de último cierre (precio de "hoy").
func (c *Client) latestClose(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?adjusted=true&apiKey=%s", c.baseURL, symbol, c.apiKey)

	var resp prevCloseResponse
	if err := c.get(ctx, c.aggsLimiter, url, &resp); err != nil {
		return 0, fmt.Errorf("polygon.GetPrice: %s: %w", symbol, err)
	}
	if !resp.ok() {
		return 0, statusError(resp.envelope, domain.ErrPriceNotFound,
			fmt.Sprintf("polygon.GetPrice: %s", symbol))
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("polygon.GetPrice: %s: empty previous close: %w", symbol, domain.ErrPriceNotFound)
	}
	return resp.Results[0].C, nil
}

// closeOn consulta el cierre de un día concreto, sin walkback.
func (c *Client) closeOn(ctx context.Context, symbol string, day time.Time) (float64, error) {
	url := fmt.Sprintf("%s/v1/open-close/%s/%s?adjusted=true&apiKey=%s",
		c.baseURL, symbol, day.Format(domain.DateLayout), c.apiKey)

	var resp openCloseResponse
	if err := c.get(ctx, c.aggsLimiter, url, &resp); err != nil {
		return 0, fmt.Errorf("polygon close %s@%s: %w", symbol, day.Format(domain.DateLayout), err)
	}
	if !resp.ok() {
		return 0, statusError(resp.envelope, domain.ErrPriceNotFound,
			fmt.Sprintf("polygon close %s@%s", symbol, day.Format(domain.DateLayout)))
	}
	return resp.Close, nil
}

// IsMarketClosed sondea el instrumento de referencia en la fecha dada.
// True sii el sondeo (sin walkback) devuelve ErrPriceNotFound. El engine
// lo usa para ajustar la fecha de evaluación ANTES del fan-out por
// ticker y ahorrarse N walkbacks redundantes.
func (c *Client) IsMarketClosed(ctx context.Context, date time.Time) (bool, error) {
	_, err := c.closeOn(ctx, c.reference, domain.Day(date))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, domain.ErrPriceNotFound) {
		return true, nil
	}
	return false, err
}

// GetTickerDate emite el fetch de financials y el de precio
// concurrentemente y construye el snapshot. Si cualquiera falla, falla
// el TickerDate completo — la exclusión por ticker es del engine.
func (c *Client) GetTickerDate(ctx context.Context, ticker domain.Ticker, date time.Time) (domain.TickerDate, error) {
	var (
		current, previous domain.FinancialFiling
		price             float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, previous, err = c.GetFinancials(gctx, ticker.Symbol, date)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = c.GetPrice(gctx, ticker.Symbol, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TickerDate{}, err
	}

	return domain.NewTickerDate(ticker, domain.Day(date), current, previous, price)
}

// GetDailyPriceSeries devuelve la serie densa de cierres diarios en
// [start, end], siguiendo next_url hasta agotar la paginación.
func (c *Client) GetDailyPriceSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=5000&apiKey=%s",
		c.baseURL, symbol,
		domain.Day(start).Format(domain.DateLayout),
		domain.Day(end).Format(domain.DateLayout),
		c.apiKey)

	var series domain.PriceSeries
	for page := 0; url != ""; page++ {
		var resp aggsRangeResponse
		if err := c.get(ctx, c.aggsLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("polygon.GetDailyPriceSeries: %s: %w", symbol, err)
		}
		if !resp.ok() {
			return nil, statusError(resp.envelope, domain.ErrPriceNotFound,
				fmt.Sprintf("polygon.GetDailyPriceSeries: %s", symbol))
		}

		series = append(series, mapAggs(resp.Results)...)

		slog.Debug("fetched daily aggs page",
			"symbol", symbol,
			"page", page,
			"count", len(resp.Results),
			"total", len(series),
			"has_more", resp.NextURL != "",
		)

		// next_url viene sin la apiKey
		url = resp.NextURL
		if url != "" && !strings.Contains(url, "apiKey=") {
			url += "&apiKey=" + c.apiKey
		}
	}

	series.Sort()
	return series, nil
}
