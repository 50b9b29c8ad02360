package polygon

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
)

const financialsPath = "/vX/reference/financials"

// GetFinancials devuelve los dos filings más recientes presentados en o
// antes de asOf: (actual, anterior). El endpoint ya ordena por filing
// date descendente; se piden exactamente 2 resultados.
func (c *Client) GetFinancials(ctx context.Context, symbol string, asOf time.Time) (domain.FinancialFiling, domain.FinancialFiling, error) {
	var zero domain.FinancialFiling

	url := fmt.Sprintf("%s%s?ticker=%s&period_of_report_date.lte=%s&sort=filing_date&order=desc&limit=2&apiKey=%s",
		c.baseURL, financialsPath, symbol, domain.Day(asOf).Format(domain.DateLayout), c.apiKey)

	var resp financialsResponse
	if err := c.get(ctx, c.refLimiter, url, &resp); err != nil {
		return zero, zero, fmt.Errorf("polygon.GetFinancials: %s: %w", symbol, err)
	}

	if !resp.ok() {
		return zero, zero, statusError(resp.envelope, domain.ErrFinancialsNotFound,
			fmt.Sprintf("polygon.GetFinancials: %s", symbol))
	}
	if len(resp.Results) < 2 {
		return zero, zero, fmt.Errorf("polygon.GetFinancials: %s: %d filings as of %s: %w",
			symbol, len(resp.Results), asOf.Format(domain.DateLayout), domain.ErrFinancialsNotFound)
	}

	current := mapFiling(resp.Results[0])
	previous := mapFiling(resp.Results[1])

	// El provider promete orden descendente; un par desordenado o con
	// fechas duplicadas no sirve como (actual, anterior).
	if !current.FilingDate.After(previous.FilingDate) {
		return zero, zero, fmt.Errorf("polygon.GetFinancials: %s: filings not in descending filing-date order: %w",
			symbol, domain.ErrFinancialsNotFound)
	}

	return current, previous, nil
}
