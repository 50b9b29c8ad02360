package strategy

import (
	"context"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Selection es un pick de la estrategia: un snapshot y la proporción de
// capital que se le asigna en el próximo intervalo.
type Selection struct {
	TickerDate domain.TickerDate
	Proportion float64
}

// Strategy define el contrato de selección de tickers. El engine es
// genérico sobre esta capability, nunca sobre una estrategia concreta.
//
// Contrato: cada proporción devuelta vive en (0,1] y la suma sobre la
// lista es ≤ 1 (el resto queda en cash). El engine valida la suma tras
// cada llamada y aborta el run completo con ErrInvalidSelection si se
// viola — es un defecto de programación de la estrategia, no una
// condición de datos recuperable.
type Strategy interface {
	// SelectTickers recibe el snapshot cross-seccional de una fecha de
	// evaluación y devuelve los picks con sus proporciones.
	SelectTickers(ctx context.Context, snapshot []domain.TickerDate) ([]Selection, error)
}
