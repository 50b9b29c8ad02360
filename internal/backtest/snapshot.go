package backtest

// snapshot.go — adquisición sincronizada del snapshot cross-seccional.
//
// Todos los fetches de una fecha corren en paralelo acotado; la barrera
// no se abre hasta que cada ticker resolvió o quedó excluido. Un error
// recuperable (precio/financials no encontrados) excluye al ticker con
// diagnóstico; un error fatal cancela el grupo y aborta el run sin
// esperar a emitir el resto del fan-out.

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Exclusion documenta por qué un ticker quedó fuera del snapshot.
type Exclusion struct {
	Ticker domain.Ticker
	Reason error
}

// outcome es el resultado por ticker del fan-out: exactamente uno de los
// dos campos queda seteado.
type outcome struct {
	td       *domain.TickerDate
	excluded error
}

// AcquireSnapshot obtiene el TickerDate de cada ticker del universo para
// la fecha dada, con paralelismo acotado. Devuelve el snapshot (que
// puede tener legítimamente menos tickers que el universo) y las
// exclusiones con su razón.
func (e *Engine) AcquireSnapshot(ctx context.Context, date time.Time) ([]domain.TickerDate, []Exclusion, error) {
	results := make([]outcome, len(e.universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallel)

	for i, ticker := range e.universe {
		g.Go(func() error {
			td, err := e.market.GetTickerDate(gctx, ticker, date)
			if err != nil {
				if domain.Recoverable(err) {
					results[i] = outcome{excluded: err}
					return nil
				}
				// fatal: cancela el contexto del grupo → no se emiten
				// más llamadas dentro de esta barrera
				return err
			}
			results[i] = outcome{td: &td}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	snapshot := make([]domain.TickerDate, 0, len(e.universe))
	var excluded []Exclusion
	for i, res := range results {
		if res.td != nil {
			snapshot = append(snapshot, *res.td)
			continue
		}
		excluded = append(excluded, Exclusion{Ticker: e.universe[i], Reason: res.excluded})
	}
	return snapshot, excluded, nil
}
