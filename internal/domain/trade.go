package domain

import (
	"fmt"
	"time"
)

// Trade describe qué proporción del capital se asignó a un ticker
// durante un intervalo. Proportion vive en (0,1].
type Trade struct {
	Symbol     string
	Proportion float64
	Start      time.Time
	End        time.Time
}

// TradeTimeSlice es el holding de un paso de simulación: todos los
// trades comparten el intervalo del slice y la suma de proporciones es
// ≤ 1 (el resto es cash sin invertir). Inmutable una vez emitido por el
// engine.
type TradeTimeSlice struct {
	Start  time.Time
	End    time.Time
	Trades []Trade
}

// CashResidual devuelve la fracción de capital no invertida del slice.
func (s TradeTimeSlice) CashResidual() float64 {
	invested := 0.0
	for _, t := range s.Trades {
		invested += t.Proportion
	}
	return 1.0 - invested
}

// Validate verifica los invariantes del slice: cada proporción en (0,1],
// suma ≤ 1, y fechas de cada trade idénticas a las del slice.
func (s TradeTimeSlice) Validate() error {
	sum := 0.0
	for _, t := range s.Trades {
		if t.Proportion <= 0 || t.Proportion > 1 {
			return fmt.Errorf("domain.TradeTimeSlice: %s: proportion %.4f outside (0,1]: %w",
				t.Symbol, t.Proportion, ErrInvalidSelection)
		}
		if !SameDay(t.Start, s.Start) || !SameDay(t.End, s.End) {
			return fmt.Errorf("domain.TradeTimeSlice: %s: trade interval [%s, %s] != slice interval [%s, %s]: %w",
				t.Symbol,
				t.Start.Format(DateLayout), t.End.Format(DateLayout),
				s.Start.Format(DateLayout), s.End.Format(DateLayout),
				ErrInvalidSelection)
		}
		sum += t.Proportion
	}
	// Tolerancia por acumulación en float: 1/3 × 3 debe pasar.
	if sum > 1.0+1e-9 {
		return fmt.Errorf("domain.TradeTimeSlice: proportions sum %.6f > 1: %w", sum, ErrInvalidSelection)
	}
	return nil
}
