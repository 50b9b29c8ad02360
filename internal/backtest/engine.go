package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/backtester/internal/domain"
	"github.com/alejandrodnm/backtester/internal/ports"
	"github.com/alejandrodnm/backtester/internal/strategy"
)

const (
	defaultMonthsBack  = 12
	defaultMaxParallel = 8

	// Igual que el walkback de precios del client: si el mercado lleva
	// más de 3 días cerrado alrededor de una fecha de evaluación, algo
	// no cuadra con los datos.
	maxSnapDays = 3
)

// Config controla el run del engine.
type Config struct {
	// MonthsBack es cuántos meses hacia atrás simular. El run usa
	// MonthsBack+1 snapshots mensuales y produce MonthsBack slices.
	MonthsBack int
	// MaxParallel acota el fan-out de fetches por snapshot.
	MaxParallel int
	// Now permite inyectar el reloj en tests. Nil usa time.Now.
	Now func() time.Time
}

// DefaultConfig devuelve una configuración sensata.
func DefaultConfig() Config {
	return Config{
		MonthsBack:  defaultMonthsBack,
		MaxParallel: defaultMaxParallel,
	}
}

// Engine recorre las fechas de evaluación en orden cronológico, adquiere
// un snapshot sincronizado del universo en cada paso, delega la
// selección a la estrategia y emite los trade intervals resultantes.
type Engine struct {
	cfg      Config
	universe []domain.Ticker
	market   ports.MarketData
	strat    strategy.Strategy
}

// New crea un Engine con todas las dependencias inyectadas.
func New(cfg Config, universe []domain.Ticker, market ports.MarketData, strat strategy.Strategy) *Engine {
	if cfg.MonthsBack <= 0 {
		cfg.MonthsBack = defaultMonthsBack
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	return &Engine{
		cfg:      cfg,
		universe: universe,
		market:   market,
		strat:    strat,
	}
}

// Result es el output completo de un run.
type Result struct {
	RunID  string
	Start  time.Time
	End    time.Time
	Slices []domain.TradeTimeSlice
}

// Run orquesta el backtest completo: calcula las fechas de evaluación
// mensuales hacia atrás desde hoy, las ajusta al día hábil más cercano,
// y por cada par consecutivo de fechas adquiere el snapshot, pide la
// selección a la estrategia y emite un TradeTimeSlice.
//
// El run completa entero o termina con el primer error fatal; los
// errores recuperables por ticker nunca salen de la adquisición de
// snapshots.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	runID := uuid.New().String()
	log := slog.With("run_id", runID)

	dates, err := e.evaluationDates(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backtest.Run: %w", err)
	}

	log.Info("backtest starting",
		"months_back", e.cfg.MonthsBack,
		"snapshots", len(dates),
		"universe", len(e.universe),
		"start", dates[0].Format(domain.DateLayout),
		"end", dates[len(dates)-1].Format(domain.DateLayout),
	)

	slices := make([]domain.TradeTimeSlice, 0, len(dates)-1)
	for i := 0; i < len(dates)-1; i++ {
		slice, err := e.step(ctx, log, dates[i], dates[i+1])
		if err != nil {
			return Result{}, fmt.Errorf("backtest.Run: step %d (%s): %w",
				i, dates[i].Format(domain.DateLayout), err)
		}
		slices = append(slices, slice)
	}

	log.Info("backtest finished", "slices", len(slices))

	return Result{
		RunID:  runID,
		Start:  dates[0],
		End:    dates[len(dates)-1],
		Slices: slices,
	}, nil
}

// step procesa una fecha de evaluación: snapshot → selección → slice.
func (e *Engine) step(ctx context.Context, log *slog.Logger, start, end time.Time) (domain.TradeTimeSlice, error) {
	snapshot, excluded, err := e.AcquireSnapshot(ctx, start)
	if err != nil {
		return domain.TradeTimeSlice{}, err
	}
	for _, ex := range excluded {
		log.Info("ticker excluded from snapshot",
			"symbol", ex.Ticker.Symbol,
			"date", start.Format(domain.DateLayout),
			"reason", ex.Reason,
		)
	}

	selections, err := e.strat.SelectTickers(ctx, snapshot)
	if err != nil {
		return domain.TradeTimeSlice{}, fmt.Errorf("strategy: %w", err)
	}

	slice := domain.TradeTimeSlice{Start: start, End: end}
	for _, sel := range selections {
		slice.Trades = append(slice.Trades, domain.Trade{
			Symbol:     sel.TickerDate.Symbol(),
			Proportion: sel.Proportion,
			Start:      start,
			End:        end,
		})
	}

	// La validación de la selección es del engine, no de la estrategia:
	// una suma > 1 aborta el run, nunca se recorta en silencio.
	if err := slice.Validate(); err != nil {
		return domain.TradeTimeSlice{}, err
	}

	log.Debug("step completed",
		"start", start.Format(domain.DateLayout),
		"end", end.Format(domain.DateLayout),
		"snapshot", len(snapshot),
		"excluded", len(excluded),
		"picks", len(slice.Trades),
		"cash", slice.CashResidual(),
	)

	return slice, nil
}

// evaluationDates devuelve las MonthsBack+1 fechas mensuales en orden
// cronológico, cada una ajustada al día hábil más cercano hacia atrás.
// El ajuste previo evita que cada ticker del fan-out repita el mismo
// walkback N veces.
func (e *Engine) evaluationDates(ctx context.Context) ([]time.Time, error) {
	now := e.now()

	dates := make([]time.Time, 0, e.cfg.MonthsBack+1)
	for i := e.cfg.MonthsBack; i >= 0; i-- {
		date := domain.Day(now.AddDate(0, -i, 0))

		// "hoy" se resuelve con el endpoint de último cierre, no
		// necesita ajuste
		if !domain.SameDay(date, now) {
			snapped, err := e.snapToTradingDay(ctx, date)
			if err != nil {
				return nil, err
			}
			date = snapped
		}
		dates = append(dates, date)
	}
	return dates, nil
}

// snapToTradingDay camina hacia atrás día a día hasta encontrar un día
// con mercado abierto, acotado a maxSnapDays.
func (e *Engine) snapToTradingDay(ctx context.Context, date time.Time) (time.Time, error) {
	day := domain.Day(date)
	for walked := 0; walked <= maxSnapDays; walked++ {
		closed, err := e.market.IsMarketClosed(ctx, day)
		if err != nil {
			return time.Time{}, err
		}
		if !closed {
			return day, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, fmt.Errorf("no trading day within %d days of %s: %w",
		maxSnapDays, date.Format(domain.DateLayout), domain.ErrPriceNotFound)
}

func (e *Engine) now() time.Time {
	if e.cfg.Now != nil {
		return e.cfg.Now()
	}
	return time.Now()
}
