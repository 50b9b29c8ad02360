package domain

import (
	"sort"
	"time"
)

// PricePoint es un cierre diario.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries es una serie densa de cierres diarios ordenada por fecha
// ascendente, tal como la devuelve el provider.
type PriceSeries []PricePoint

// Sort ordena la serie por fecha ascendente in-place.
func (s PriceSeries) Sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}

// At devuelve el cierre en la fecha dada, si existe.
func (s PriceSeries) At(date time.Time) (float64, bool) {
	d := Day(date)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(d) })
	if i < len(s) && s[i].Date.Equal(d) {
		return s[i].Close, true
	}
	return 0, false
}

// First devuelve el primer punto de la serie.
func (s PriceSeries) First() PricePoint {
	if len(s) == 0 {
		return PricePoint{}
	}
	return s[0]
}

// Last devuelve el último punto de la serie.
func (s PriceSeries) Last() PricePoint {
	if len(s) == 0 {
		return PricePoint{}
	}
	return s[len(s)-1]
}

// CurvePoint es un punto de la curva de valoración: el valor de la
// estrategia y del benchmark en una fecha, ambos normalizados a 1.0 al
// inicio del run.
type CurvePoint struct {
	Date      time.Time
	Strategy  float64
	Benchmark float64
}

// ValuationCurve es la curva diaria continua que construye el report a
// partir de los TradeTimeSlice. Solo lectura una vez construida.
type ValuationCurve []CurvePoint

// First devuelve el primer punto de la curva.
func (c ValuationCurve) First() CurvePoint {
	if len(c) == 0 {
		return CurvePoint{}
	}
	return c[0]
}

// Last devuelve el último punto de la curva.
func (c ValuationCurve) Last() CurvePoint {
	if len(c) == 0 {
		return CurvePoint{}
	}
	return c[len(c)-1]
}

// Statistics es el set de métricas de riesgo/retorno del run frente al
// benchmark, calculado sobre retornos periódicos re-muestreados.
type Statistics struct {
	RunID string
	Start time.Time
	End   time.Time

	CumulativeReturn float64 // last/first - 1 de la curva completa
	BenchmarkReturn  float64
	CAGR             float64
	Beta             float64
	Correlation      float64
	Volatility       float64 // stdev de retornos periódicos
	Sharpe           float64 // anualizado según la cadencia de muestreo
}
