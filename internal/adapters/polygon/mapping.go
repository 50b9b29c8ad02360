package polygon

import (
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Conceptos del filing que extraemos a campos tipados del dominio.
const (
	conceptBasicEPS    = "basic_earnings_per_share"
	conceptRevenues    = "revenues"
	conceptNetIncome   = "net_income_loss"
	conceptNetCashFlow = "net_cash_flow"
)

// mapFiling convierte un filing raw a la entidad de dominio. Si el
// provider omite filing_date (pasa en filings antiguos) usa end_date
// como fecha de orden.
func mapFiling(raw rawFiling) domain.FinancialFiling {
	filingDate := parseDate(raw.FilingDate)
	if filingDate.IsZero() {
		filingDate = parseDate(raw.EndDate)
	}

	return domain.FinancialFiling{
		CompanyName:  raw.CompanyName,
		FiscalYear:   raw.FiscalYear,
		FiscalPeriod: raw.FiscalPeriod,
		FilingDate:   filingDate,
		EndDate:      parseDate(raw.EndDate),
		Financials: domain.FinancialStatements{
			IncomeStatement: domain.IncomeStatement{
				BasicEarningsPerShare: raw.Financials.IncomeStatement[conceptBasicEPS].Value,
				Revenues:              raw.Financials.IncomeStatement[conceptRevenues].Value,
				NetIncomeLoss:         raw.Financials.IncomeStatement[conceptNetIncome].Value,
			},
			CashFlowStatement: domain.CashFlowStatement{
				NetCashFlow: raw.Financials.CashFlowStatement[conceptNetCashFlow].Value,
			},
		},
	}
}

// mapAggs convierte barras agregadas a la serie de dominio, normalizando
// el timestamp epoch-millis a día UTC.
func mapAggs(aggs []rawAgg) domain.PriceSeries {
	series := make(domain.PriceSeries, 0, len(aggs))
	for _, a := range aggs {
		series = append(series, domain.PricePoint{
			Date:  domain.Day(time.UnixMilli(a.T)),
			Close: a.C,
		})
	}
	return series
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
