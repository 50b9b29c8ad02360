package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// MarketData abstrae el provider de datos de mercado. Cada fetch es
// independiente y sin orden garantizado: el ordenamiento cronológico lo
// imponen los callers (engine/report), nunca el client.
type MarketData interface {
	// GetFinancials devuelve los dos filings más recientes presentados en
	// o antes de asOf: (actual, anterior). Falla con ErrFinancialsNotFound
	// si el provider devuelve menos de dos.
	GetFinancials(ctx context.Context, symbol string, asOf time.Time) (current, previous domain.FinancialFiling, err error)

	// GetPrice devuelve el cierre del ticker en la fecha dada. Si el
	// mercado estuvo cerrado ese día, camina hacia atrás día a día un
	// número acotado de intentos antes de fallar con ErrPriceNotFound.
	GetPrice(ctx context.Context, symbol string, date time.Time) (float64, error)

	// GetTickerDate emite GetFinancials y GetPrice concurrentemente y
	// construye el snapshot. Falla si cualquiera de las dos sub-llamadas
	// falla — el aislamiento de errores por ticker ocurre una capa arriba.
	GetTickerDate(ctx context.Context, ticker domain.Ticker, date time.Time) (domain.TickerDate, error)

	// IsMarketClosed sondea el precio de un instrumento de referencia en
	// la fecha dada, sin walkback. True sii el sondeo da ErrPriceNotFound.
	IsMarketClosed(ctx context.Context, date time.Time) (bool, error)

	// GetDailyPriceSeries devuelve la serie densa de cierres diarios en
	// [start, end], siguiendo los cursores de paginación del provider
	// hasta agotarlos.
	GetDailyPriceSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error)
}
