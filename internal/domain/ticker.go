package domain

import (
	"fmt"
	"time"
)

// Ticker identifica un instrumento y su sector de clasificación.
// Es un value object inmutable con igualdad por valor.
type Ticker struct {
	Symbol string
	Sector string
}

func (t Ticker) String() string {
	return fmt.Sprintf("%s(%s)", t.Symbol, t.Sector)
}

// TickerDate es el snapshot inmutable de un instrumento en una fecha:
// precio de cierre + los dos filings más recientes a esa fecha.
// Se construye exclusivamente vía NewTickerDate, que valida el invariante
// de orden entre filings.
type TickerDate struct {
	Ticker         Ticker
	QueryDate      time.Time
	CurrentFiling  FinancialFiling
	PreviousFiling FinancialFiling
	Price          float64
}

// NewTickerDate construye el snapshot validando que el filing actual sea
// estrictamente posterior al anterior. Un provider que devuelva filings
// desordenados o duplicados equivale a no tener financials utilizables.
func NewTickerDate(ticker Ticker, queryDate time.Time, current, previous FinancialFiling, price float64) (TickerDate, error) {
	if !current.FilingDate.After(previous.FilingDate) {
		return TickerDate{}, fmt.Errorf("domain.NewTickerDate: %s: filings out of order (current %s <= previous %s): %w",
			ticker.Symbol,
			current.FilingDate.Format(DateLayout),
			previous.FilingDate.Format(DateLayout),
			ErrFinancialsNotFound,
		)
	}
	if price <= 0 {
		return TickerDate{}, fmt.Errorf("domain.NewTickerDate: %s: non-positive price %.4f: %w",
			ticker.Symbol, price, ErrPriceNotFound)
	}
	return TickerDate{
		Ticker:         ticker,
		QueryDate:      queryDate,
		CurrentFiling:  current,
		PreviousFiling: previous,
		Price:          price,
	}, nil
}

// Symbol devuelve el símbolo del instrumento.
func (td TickerDate) Symbol() string { return td.Ticker.Symbol }

// Sector devuelve el sector del instrumento.
func (td TickerDate) Sector() string { return td.Ticker.Sector }

func (td TickerDate) String() string {
	return fmt.Sprintf("TickerDate(%s, %s)", td.Ticker, td.QueryDate.Format(DateLayout))
}

// DateLayout es el formato de fecha que usa el provider (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Day normaliza un instante a medianoche UTC. Todas las fechas del
// backtest son días de calendario, no instantes.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay devuelve true si a y b caen en el mismo día de calendario UTC.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
