package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// SeriesCache persiste series diarias ya obtenidas del provider para no
// repetir fetches idénticos entre el engine y el report.
type SeriesCache interface {
	// GetSeries devuelve la serie cacheada para [start, end] si un fetch
	// previo cubre el rango completo. ok=false en cache miss.
	GetSeries(ctx context.Context, symbol string, start, end time.Time) (series domain.PriceSeries, ok bool, err error)

	// PutSeries guarda la serie obtenida para el rango pedido.
	PutSeries(ctx context.Context, symbol string, start, end time.Time, series domain.PriceSeries) error

	Close() error
}
