package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// daysPerYear incluye el ajuste por bisiestos.
const daysPerYear = 365.25

// computeStatistics deriva las métricas de riesgo/retorno de la curva.
// Los retornos periódicos se calculan sobre un remuestreo a cadencia
// fija de resampleDays días hábiles; el ratio de anualización convierte
// esa cadencia a periodos por año de calendario.
func computeStatistics(runID string, curve domain.ValuationCurve, resampleDays int) domain.Statistics {
	first, last := curve.First(), curve.Last()
	elapsedDays := last.Date.Sub(first.Date).Hours() / 24

	stats := domain.Statistics{
		RunID:            runID,
		Start:            first.Date,
		End:              last.Date,
		CumulativeReturn: last.Strategy/first.Strategy - 1,
		BenchmarkReturn:  last.Benchmark/first.Benchmark - 1,
	}
	if elapsedDays > 0 {
		stats.CAGR = math.Pow(last.Strategy/first.Strategy, daysPerYear/elapsedDays) - 1
	}

	sampled := resample(curve, resampleDays)
	strategyReturns, benchReturns := periodicReturns(sampled)
	if len(strategyReturns) < 2 {
		return stats
	}

	stats.Beta = stat.Covariance(strategyReturns, benchReturns, nil) / stat.Variance(benchReturns, nil)
	stats.Correlation = stat.Correlation(strategyReturns, benchReturns, nil)
	stats.Volatility = stat.StdDev(strategyReturns, nil)
	stats.Sharpe = stat.Mean(strategyReturns, nil) / stats.Volatility * math.Sqrt(periodsPerYear(resampleDays))

	return stats
}

// resample toma un punto cada n de la curva, empezando por el primero.
func resample(curve domain.ValuationCurve, n int) domain.ValuationCurve {
	sampled := make(domain.ValuationCurve, 0, len(curve)/n+1)
	for i := 0; i < len(curve); i += n {
		sampled = append(sampled, curve[i])
	}
	return sampled
}

// periodicReturns devuelve los cambios porcentuales entre puntos
// consecutivos de ambas columnas.
func periodicReturns(curve domain.ValuationCurve) (strategy, bench []float64) {
	for i := 1; i < len(curve); i++ {
		strategy = append(strategy, curve[i].Strategy/curve[i-1].Strategy-1)
		bench = append(bench, curve[i].Benchmark/curve[i-1].Benchmark-1)
	}
	return strategy, bench
}

// periodsPerYear convierte una cadencia en días hábiles a periodos por
// año: n días hábiles ocupan n×7/5 días de calendario.
func periodsPerYear(resampleDays int) float64 {
	return daysPerYear / (float64(resampleDays) * 7.0 / 5.0)
}
