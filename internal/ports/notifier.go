package ports

import (
	"context"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Notifier presenta el resultado del run al usuario.
type Notifier interface {
	// Notify muestra la curva de valoración, las estadísticas y los
	// holdings por slice. En la implementación de consola imprime tablas
	// formateadas.
	Notify(ctx context.Context, curve domain.ValuationCurve, stats domain.Statistics, slices []domain.TradeTimeSlice) error
}
