package storage

// sqlite.go — cache local de series diarias.
//
// Estrategia:
//   - `daily_bars`: una fila por (symbol, día) con el cierre. UPSERT.
//   - `series_spans`: los rangos [start, end] ya fetcheados por símbolo.
//     Un GetSeries es hit solo si algún span cubre el rango completo —
//     una cobertura parcial devolvería una serie con huecos que no se
//     distinguen de días sin mercado.
//   - Prune al arrancar: spans y barras no tocados en 30 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/backtester/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_bars (
    symbol TEXT NOT NULL,
    day    TEXT NOT NULL,
    close  REAL NOT NULL,
    PRIMARY KEY (symbol, day)
);

CREATE TABLE IF NOT EXISTS series_spans (
    symbol     TEXT NOT NULL,
    start_day  TEXT NOT NULL,
    end_day    TEXT NOT NULL,
    fetched_at DATETIME NOT NULL,
    PRIMARY KEY (symbol, start_day, end_day)
);

CREATE INDEX IF NOT EXISTS idx_bars_symbol_day ON daily_bars(symbol, day);
CREATE INDEX IF NOT EXISTS idx_spans_symbol    ON series_spans(symbol);
`

const retentionSpans = 30 * 24 * time.Hour

// SeriesStore implementa ports.SeriesCache sobre SQLite (pure Go, sin CGo).
type SeriesStore struct {
	db *sql.DB
}

// NewSeriesStore abre (o crea) la base en la ruta dada, aplica el schema
// y poda los datos antiguos.
func NewSeriesStore(path string) (*SeriesStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSeriesStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSeriesStore: apply schema: %w", err)
	}

	s := &SeriesStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// GetSeries devuelve la serie cacheada para [start, end] si un fetch
// previo cubre el rango completo.
func (s *SeriesStore) GetSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, bool, error) {
	startDay := domain.Day(start).Format(domain.DateLayout)
	endDay := domain.Day(end).Format(domain.DateLayout)

	var covering int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM series_spans WHERE symbol = ? AND start_day <= ? AND end_day >= ?`,
		symbol, startDay, endDay,
	).Scan(&covering)
	if err != nil {
		return nil, false, fmt.Errorf("storage.GetSeries: span lookup %s: %w", symbol, err)
	}
	if covering == 0 {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, close FROM daily_bars WHERE symbol = ? AND day >= ? AND day <= ? ORDER BY day ASC`,
		symbol, startDay, endDay,
	)
	if err != nil {
		return nil, false, fmt.Errorf("storage.GetSeries: %s: %w", symbol, err)
	}
	defer rows.Close()

	var series domain.PriceSeries
	for rows.Next() {
		var dayStr string
		var close float64
		if err := rows.Scan(&dayStr, &close); err != nil {
			return nil, false, fmt.Errorf("storage.GetSeries: scan %s: %w", symbol, err)
		}
		d, err := time.Parse(domain.DateLayout, dayStr)
		if err != nil {
			return nil, false, fmt.Errorf("storage.GetSeries: bad day %q: %w", dayStr, err)
		}
		series = append(series, domain.PricePoint{Date: d, Close: close})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("storage.GetSeries: %s: %w", symbol, err)
	}

	return series, true, nil
}

// PutSeries guarda la serie obtenida y registra el span cubierto.
func (s *SeriesStore) PutSeries(ctx context.Context, symbol string, start, end time.Time, series domain.PriceSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.PutSeries: begin %s: %w", symbol, err)
	}
	defer tx.Rollback()

	for _, p := range series {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO daily_bars (symbol, day, close) VALUES (?, ?, ?)
			 ON CONFLICT(symbol, day) DO UPDATE SET close = excluded.close`,
			symbol, p.Date.Format(domain.DateLayout), p.Close,
		); err != nil {
			return fmt.Errorf("storage.PutSeries: upsert bar %s@%s: %w", symbol, p.Date.Format(domain.DateLayout), err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO series_spans (symbol, start_day, end_day, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol, start_day, end_day) DO UPDATE SET fetched_at = excluded.fetched_at`,
		symbol,
		domain.Day(start).Format(domain.DateLayout),
		domain.Day(end).Format(domain.DateLayout),
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.PutSeries: upsert span %s: %w", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.PutSeries: commit %s: %w", symbol, err)
	}
	return nil
}

// Close cierra la base.
func (s *SeriesStore) Close() error {
	return s.db.Close()
}

// pruneOld borra spans viejos y las barras de símbolos sin spans.
func (s *SeriesStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionSpans)
	s.db.ExecContext(ctx, `DELETE FROM series_spans WHERE fetched_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM daily_bars WHERE symbol NOT IN (SELECT DISTINCT symbol FROM series_spans)`)
}
