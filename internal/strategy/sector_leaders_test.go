package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/internal/domain"
)

func snapshotTD(symbol, sector string, price float64) domain.TickerDate {
	td, err := domain.NewTickerDate(
		domain.Ticker{Symbol: symbol, Sector: sector},
		time.Date(2022, 11, 4, 0, 0, 0, 0, time.UTC),
		domain.FinancialFiling{FilingDate: time.Date(2022, 10, 28, 0, 0, 0, 0, time.UTC)},
		domain.FinancialFiling{FilingDate: time.Date(2022, 7, 29, 0, 0, 0, 0, time.UTC)},
		price,
	)
	if err != nil {
		panic(err)
	}
	return td
}

// Universo de 12 tickers en 4 sectores con precios fijos.
func sampleSnapshot() []domain.TickerDate {
	return []domain.TickerDate{
		snapshotTD("AAPL", "Technology", 1),
		snapshotTD("MSFT", "Technology", 2),
		snapshotTD("ADBE", "Technology", 3),
		snapshotTD("RTX", "Industrials", 5),
		snapshotTD("DE", "Industrials", 3),
		snapshotTD("HON", "Industrials", 2),
		snapshotTD("JNJ", "Healthcare", 1),
		snapshotTD("MS", "Financials", 2),
		snapshotTD("GS", "Financials", 2.5),
		snapshotTD("TMO", "Healthcare", 1.5),
		snapshotTD("ICE", "Financials", 4),
		snapshotTD("UNP", "Industrials", 2),
	}
}

func TestSectorLeaders_TopFourByPrice(t *testing.T) {
	strat := NewSectorLeaders(4, ScoreByPrice)

	selections, err := strat.SelectTickers(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Len(t, selections, 4)

	// Un líder por sector, ordenados por precio descendente.
	assert.Equal(t, "RTX", selections[0].TickerDate.Symbol())
	assert.Equal(t, "Industrials", selections[0].TickerDate.Sector())
	assert.Equal(t, "ICE", selections[1].TickerDate.Symbol())
	assert.Equal(t, "Financials", selections[1].TickerDate.Sector())
	assert.Equal(t, "ADBE", selections[2].TickerDate.Symbol())
	assert.Equal(t, "Technology", selections[2].TickerDate.Sector())
	assert.Equal(t, "TMO", selections[3].TickerDate.Symbol())
	assert.Equal(t, "Healthcare", selections[3].TickerDate.Sector())

	sum := 0.0
	for _, sel := range selections {
		assert.InDelta(t, 0.25, sel.Proportion, 1e-9)
		sum += sel.Proportion
	}
	assert.LessOrEqual(t, sum, 1.0+1e-9)
}

func TestSectorLeaders_FewerSectorsThanTopN(t *testing.T) {
	strat := NewSectorLeaders(5, ScoreByPrice)

	selections, err := strat.SelectTickers(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Len(t, selections, 4) // solo hay 4 sectores

	// Con 4 picks de 1/5 el quinto queda en cash.
	sum := 0.0
	for _, sel := range selections {
		assert.InDelta(t, 0.2, sel.Proportion, 1e-9)
		sum += sel.Proportion
	}
	assert.InDelta(t, 0.8, sum, 1e-9)
}

func TestSectorLeaders_TopNSmallerThanSectors(t *testing.T) {
	strat := NewSectorLeaders(3, ScoreByPrice)

	selections, err := strat.SelectTickers(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Len(t, selections, 3)

	assert.Equal(t, "RTX", selections[0].TickerDate.Symbol())
	assert.Equal(t, "ICE", selections[1].TickerDate.Symbol())
	assert.Equal(t, "ADBE", selections[2].TickerDate.Symbol())
}

func TestSectorLeaders_ScorerFailureExcludesTicker(t *testing.T) {
	failRTX := func(td domain.TickerDate) (float64, error) {
		if td.Symbol() == "RTX" {
			return 0, errors.New("no data")
		}
		return td.Price, nil
	}

	strat := NewSectorLeaders(4, failRTX)
	selections, err := strat.SelectTickers(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Len(t, selections, 4)

	// Sin RTX el líder de Industrials pasa a ser DE.
	assert.Equal(t, "ICE", selections[0].TickerDate.Symbol())
	assert.Equal(t, "ADBE", selections[1].TickerDate.Symbol())
	assert.Equal(t, "DE", selections[2].TickerDate.Symbol())
	assert.Equal(t, "TMO", selections[3].TickerDate.Symbol())
}

func TestScoreByEPSGrowth(t *testing.T) {
	td := snapshotTD("AAPL", "Technology", 100)
	td.CurrentFiling.Financials.IncomeStatement.BasicEarningsPerShare = 1.5
	td.PreviousFiling.Financials.IncomeStatement.BasicEarningsPerShare = 1.2

	growth, err := ScoreByEPSGrowth(td)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, growth, 1e-9)

	td.PreviousFiling.Financials.IncomeStatement.BasicEarningsPerShare = 0
	_, err = ScoreByEPSGrowth(td)
	assert.Error(t, err)
}
