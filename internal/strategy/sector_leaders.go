package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Scorer puntúa un snapshot. Un error excluye al ticker del ranking de
// esta fecha, no aborta el run.
type Scorer func(td domain.TickerDate) (float64, error)

// ScoreByPrice puntúa por el precio de cierre del snapshot.
func ScoreByPrice(td domain.TickerDate) (float64, error) {
	return td.Price, nil
}

// ScoreByEPS puntúa por el basic earnings per share del filing actual.
func ScoreByEPS(td domain.TickerDate) (float64, error) {
	eps := td.CurrentFiling.EPS()
	if eps == 0 {
		return 0, fmt.Errorf("%s: no EPS in current filing", td.Symbol())
	}
	return eps, nil
}

// ScoreByEPSGrowth puntúa por el crecimiento del EPS entre el filing
// anterior y el actual.
func ScoreByEPSGrowth(td domain.TickerDate) (float64, error) {
	prev := td.PreviousFiling.EPS()
	if prev == 0 {
		return 0, fmt.Errorf("%s: no EPS in previous filing", td.Symbol())
	}
	return (td.CurrentFiling.EPS() - prev) / prev, nil
}

// SectorLeaders es la estrategia de rotación sectorial: puntúa todos
// los tickers del snapshot, se queda con el mejor de cada sector, ordena
// los líderes por score descendente y toma los topN. El capital se
// reparte en partes iguales de 1/topN; si hay menos líderes que topN el
// resto queda en cash.
type SectorLeaders struct {
	topN   int
	scorer Scorer
}

var _ Strategy = (*SectorLeaders)(nil)

// NewSectorLeaders crea la estrategia con el número de picks y el scorer
// dados. Si scorer es nil usa ScoreByEPS.
func NewSectorLeaders(topN int, scorer Scorer) *SectorLeaders {
	if topN <= 0 {
		topN = 5
	}
	if scorer == nil {
		scorer = ScoreByEPS
	}
	return &SectorLeaders{topN: topN, scorer: scorer}
}

type scored struct {
	td    domain.TickerDate
	score float64
}

// SelectTickers implementa Strategy.
func (s *SectorLeaders) SelectTickers(_ context.Context, snapshot []domain.TickerDate) ([]Selection, error) {
	// Máximo por sector. Los tickers que no se dejan puntuar quedan
	// fuera del ranking de esta fecha.
	leaders := make(map[string]scored)
	for _, td := range snapshot {
		score, err := s.scorer(td)
		if err != nil {
			slog.Info("could not score ticker, excluding from ranking",
				"symbol", td.Symbol(), "date", td.QueryDate.Format(domain.DateLayout), "reason", err)
			continue
		}
		best, seen := leaders[td.Sector()]
		if !seen || score > best.score {
			leaders[td.Sector()] = scored{td: td, score: score}
		}
	}

	ranked := make([]scored, 0, len(leaders))
	for _, sc := range leaders {
		ranked = append(ranked, sc)
	}
	// Desempate por símbolo para que el ranking sea determinista aunque
	// dos sectores empaten en score.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].td.Symbol() < ranked[j].td.Symbol()
	})

	if len(ranked) > s.topN {
		ranked = ranked[:s.topN]
	}

	// Reparto fijo de 1/topN por pick: con menos líderes que topN el
	// residual queda en cash, nunca se sobre-invierte.
	proportion := 1.0 / float64(s.topN)
	selections := make([]Selection, 0, len(ranked))
	for _, sc := range ranked {
		selections = append(selections, Selection{TickerDate: sc.td, Proportion: proportion})
	}
	return selections, nil
}
