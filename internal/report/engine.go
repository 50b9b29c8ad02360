package report

// engine.go — reconstrucción de la curva de valoración.
//
// El report convierte la lista de TradeTimeSlice en UNA curva diaria
// continua comparable con el benchmark. Cada slice se valora como una
// unidad de capital invertida a su fecha de inicio; el encadenado
// reescala cada slice por el valor final del anterior para componer el
// retorno a lo largo del run completo.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/backtester/internal/domain"
	"github.com/alejandrodnm/backtester/internal/ports"
)

const (
	defaultBenchmark    = "SPY"
	defaultResampleDays = 5
	defaultMaxParallel  = 8
)

// Config controla el report.
type Config struct {
	// Benchmark es el símbolo del índice contra el que se compara.
	Benchmark string
	// ResampleDays es la cadencia de muestreo (en días hábiles) para
	// los retornos periódicos de las estadísticas.
	ResampleDays int
	// MaxParallel acota el fan-out de fetches.
	MaxParallel int
}

// DefaultConfig devuelve una configuración sensata.
func DefaultConfig() Config {
	return Config{
		Benchmark:    defaultBenchmark,
		ResampleDays: defaultResampleDays,
		MaxParallel:  defaultMaxParallel,
	}
}

// Engine reconstruye la curva de valoración a partir de los slices y
// deriva las estadísticas de riesgo/retorno.
type Engine struct {
	cfg    Config
	market ports.MarketData
}

// New crea un Engine.
func New(cfg Config, market ports.MarketData) *Engine {
	if cfg.Benchmark == "" {
		cfg.Benchmark = defaultBenchmark
	}
	if cfg.ResampleDays <= 0 {
		cfg.ResampleDays = defaultResampleDays
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	return &Engine{cfg: cfg, market: market}
}

// tradeData es el resultado de los fetches de un trade: acciones
// compradas con su proporción de capital y la serie de cierres del
// intervalo.
type tradeData struct {
	trade  domain.Trade
	shares float64
	series domain.PriceSeries
}

type sliceData struct {
	slice  domain.TradeTimeSlice
	trades []tradeData
}

// Build reconstruye la curva y calcula las estadísticas del run. Los
// fetches por trade y el del benchmark corren en paralelo acotado; el
// ensamblado final es una combinación secuencial determinista que solo
// arranca cuando todos los fetches resolvieron.
func (e *Engine) Build(ctx context.Context, runID string, slices []domain.TradeTimeSlice) (domain.ValuationCurve, domain.Statistics, error) {
	if len(slices) == 0 {
		return nil, domain.Statistics{}, fmt.Errorf("report.Build: no slices to report on")
	}

	start := slices[0].Start
	end := slices[len(slices)-1].End

	data := make([]sliceData, len(slices))
	var bench domain.PriceSeries

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallel)

	g.Go(func() error {
		var err error
		bench, err = e.market.GetDailyPriceSeries(gctx, e.cfg.Benchmark, start, end)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", e.cfg.Benchmark, err)
		}
		if len(bench) == 0 {
			return fmt.Errorf("benchmark %s: empty series: %w", e.cfg.Benchmark, domain.ErrPriceNotFound)
		}
		return nil
	})

	for i, slice := range slices {
		data[i] = sliceData{slice: slice, trades: make([]tradeData, len(slice.Trades))}
		for j, trade := range slice.Trades {
			g.Go(func() error {
				startPrice, err := e.market.GetPrice(gctx, trade.Symbol, trade.Start)
				if err != nil {
					return fmt.Errorf("start price %s: %w", trade.Symbol, err)
				}
				series, err := e.market.GetDailyPriceSeries(gctx, trade.Symbol, trade.Start, trade.End)
				if err != nil {
					return fmt.Errorf("series %s: %w", trade.Symbol, err)
				}
				data[i].trades[j] = tradeData{
					trade:  trade,
					shares: trade.Proportion / startPrice,
					series: series,
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, domain.Statistics{}, fmt.Errorf("report.Build: %w", err)
	}

	values, err := chainSlices(data)
	if err != nil {
		return nil, domain.Statistics{}, fmt.Errorf("report.Build: %w", err)
	}

	curve := alignWithBenchmark(values, bench)
	if len(curve) < 2 {
		return nil, domain.Statistics{}, fmt.Errorf("report.Build: %d overlapping dates between strategy and benchmark", len(curve))
	}

	stats := computeStatistics(runID, curve, e.cfg.ResampleDays)

	slog.Info("valuation curve built",
		"run_id", runID,
		"points", len(curve),
		"start", curve.First().Date.Format(domain.DateLayout),
		"end", curve.Last().Date.Format(domain.DateLayout),
		"final_value", curve.Last().Strategy,
	)

	return curve, stats, nil
}

// sliceTrajectory valora un slice como una unidad de capital invertida
// a su inicio: residual de cash plano + Σ shares × close(t) de cada
// trade, sobre las fechas comunes a todas las series del slice.
func sliceTrajectory(sd sliceData) (domain.PriceSeries, error) {
	cash := sd.slice.CashResidual()

	// Slice sin trades: todo cash, plano de inicio a fin.
	if len(sd.trades) == 0 {
		return domain.PriceSeries{
			{Date: domain.Day(sd.slice.Start), Close: 1},
			{Date: domain.Day(sd.slice.End), Close: 1},
		}, nil
	}

	dates := commonDates(sd.trades)
	if len(dates) == 0 {
		return nil, fmt.Errorf("slice %s: no common dates across %d trade series",
			sd.slice.Start.Format(domain.DateLayout), len(sd.trades))
	}

	traj := make(domain.PriceSeries, 0, len(dates))
	for _, date := range dates {
		value := cash
		for _, td := range sd.trades {
			close, ok := td.series.At(date)
			if !ok {
				// commonDates garantiza presencia; esto sería un bug
				return nil, fmt.Errorf("slice %s: %s missing close at %s",
					sd.slice.Start.Format(domain.DateLayout), td.trade.Symbol, date.Format(domain.DateLayout))
			}
			value += td.shares * close
		}
		traj = append(traj, domain.PricePoint{Date: date, Close: value})
	}
	return traj, nil
}

// chainSlices encadena las trayectorias: la del slice i+1 se reescala
// por el valor final del slice i, componiendo el retorno del run. En
// una fecha frontera compartida por dos slices adyacentes gana el valor
// del slice anterior (first-wins, sin doble conteo).
func chainSlices(data []sliceData) (domain.PriceSeries, error) {
	var values domain.PriceSeries
	scale := 1.0

	for _, sd := range data {
		traj, err := sliceTrajectory(sd)
		if err != nil {
			return nil, err
		}
		for _, p := range traj {
			if len(values) > 0 && !p.Date.After(values[len(values)-1].Date) {
				continue
			}
			values = append(values, domain.PricePoint{Date: p.Date, Close: p.Close * scale})
		}
		scale *= traj.Last().Close
	}
	return values, nil
}

// commonDates devuelve las fechas presentes en todas las series, en
// orden ascendente.
func commonDates(trades []tradeData) []time.Time {
	var dates []time.Time
	for _, p := range trades[0].series {
		shared := true
		for _, td := range trades[1:] {
			if _, ok := td.series.At(p.Date); !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, p.Date)
		}
	}
	return dates
}

// alignWithBenchmark junta estrategia y benchmark por fecha, normalizando
// el benchmark a 1.0 en su primer valor. Las fechas sin benchmark se
// descartan — ambas columnas comparten exactamente el mismo eje.
func alignWithBenchmark(values domain.PriceSeries, bench domain.PriceSeries) domain.ValuationCurve {
	base := bench.First().Close

	curve := make(domain.ValuationCurve, 0, len(values))
	for _, p := range values {
		b, ok := bench.At(p.Date)
		if !ok {
			continue
		}
		curve = append(curve, domain.CurvePoint{
			Date:      p.Date,
			Strategy:  p.Close,
			Benchmark: b / base,
		})
	}
	return curve
}
