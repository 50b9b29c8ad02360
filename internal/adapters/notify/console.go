package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Console implementa ports.Notifier escribiendo tablas al terminal.
type Console struct {
	out     io.Writer
	curve   bool
	verbose bool
}

// NewConsole crea un notificador que escribe a stdout. Con curve se
// imprime además la serie completa de la curva de valoración; con
// verbose, los holdings de cada slice.
func NewConsole(curve, verbose bool) *Console {
	return &Console{out: os.Stdout, curve: curve, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, curve, verbose bool) *Console {
	return &Console{out: w, curve: curve, verbose: verbose}
}

// Notify imprime el resultado del run: resumen de estadísticas, y
// opcionalmente la curva y los holdings por slice.
func (c *Console) Notify(_ context.Context, curve domain.ValuationCurve, stats domain.Statistics, slices []domain.TradeTimeSlice) error {
	if len(curve) == 0 {
		fmt.Fprintf(c.out, "[%s] empty valuation curve, nothing to report\n", time.Now().Format("15:04:05"))
		return nil
	}

	c.printSummary(stats, len(slices))

	if c.verbose {
		c.printHoldings(slices)
	}
	if c.curve {
		c.printCurve(curve)
	}

	return nil
}

// printSummary imprime la tabla de métricas del run.
func (c *Console) printSummary(stats domain.Statistics, sliceCount int) {
	fmt.Fprintf(c.out, "\n=== BACKTEST %s — %s to %s (%d slices) ===\n",
		shortRunID(stats.RunID),
		stats.Start.Format(domain.DateLayout),
		stats.End.Format(domain.DateLayout),
		sliceCount)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Strategy", "Benchmark")

	table.Append("Cumulative return", percent(stats.CumulativeReturn), percent(stats.BenchmarkReturn))
	table.Append("CAGR", percent(stats.CAGR), "-")
	table.Append("Volatility (weekly)", percent(stats.Volatility), "-")
	table.Append("Sharpe", fmt.Sprintf("%.2f", stats.Sharpe), "-")
	table.Append("Beta", fmt.Sprintf("%.2f", stats.Beta), "1.00")
	table.Append("Correlation", fmt.Sprintf("%.2f", stats.Correlation), "1.00")

	table.Render()

	excess := stats.CumulativeReturn - stats.BenchmarkReturn
	verdict := "UNDERPERFORMED"
	if excess > 0 {
		verdict = "OUTPERFORMED"
	}
	fmt.Fprintf(c.out, "  %s the benchmark by %s\n\n", verdict, percent(excess))
}

// printHoldings imprime una tabla por slice con los trades y su peso.
func (c *Console) printHoldings(slices []domain.TradeTimeSlice) {
	fmt.Fprintln(c.out, "=== HOLDINGS PER SLICE ===")

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Start", "End", "Holdings", "Cash")

	for i, slice := range slices {
		table.Append(
			fmt.Sprintf("%d", i+1),
			slice.Start.Format(domain.DateLayout),
			slice.End.Format(domain.DateLayout),
			holdingsLabel(slice.Trades),
			percent(slice.CashResidual()),
		)
	}

	table.Render()
	fmt.Fprintln(c.out)
}

// printCurve imprime la curva completa, un punto por línea.
func (c *Console) printCurve(curve domain.ValuationCurve) {
	fmt.Fprintln(c.out, "=== VALUATION CURVE ===")

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Strategy", "Benchmark")

	for _, p := range curve {
		table.Append(
			p.Date.Format(domain.DateLayout),
			fmt.Sprintf("%.4f", p.Strategy),
			fmt.Sprintf("%.4f", p.Benchmark),
		)
	}

	table.Render()
	fmt.Fprintln(c.out)
}

func holdingsLabel(trades []domain.Trade) string {
	if len(trades) == 0 {
		return "all cash"
	}

	parts := make([]string, len(trades))
	for i, trade := range trades {
		parts[i] = fmt.Sprintf("%s %s", trade.Symbol, percent(trade.Proportion))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
