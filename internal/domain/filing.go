package domain

import "time"

// FinancialFiling es un filing de fundamentales tal como lo reporta el
// provider. Se trata como un blob estructurado: el único requisito es
// poder ordenar dos filings por fecha y extraer sub-campos numéricos
// concretos (EPS, revenue) para que una estrategia los puntúe.
type FinancialFiling struct {
	CompanyName  string
	FiscalYear   string
	FiscalPeriod string
	FilingDate   time.Time
	EndDate      time.Time
	Financials   FinancialStatements
}

// FinancialStatements agrupa los estados financieros del filing.
type FinancialStatements struct {
	IncomeStatement   IncomeStatement
	CashFlowStatement CashFlowStatement
}

// IncomeStatement contiene los campos del income statement que las
// estrategias consultan.
type IncomeStatement struct {
	BasicEarningsPerShare float64
	Revenues              float64
	NetIncomeLoss         float64
}

// CashFlowStatement contiene los campos del cash flow statement.
type CashFlowStatement struct {
	NetCashFlow float64
}

// Before ordena dos filings por fecha de presentación.
func (f FinancialFiling) Before(other FinancialFiling) bool {
	return f.FilingDate.Before(other.FilingDate)
}

// EPS devuelve el basic earnings per share del filing.
func (f FinancialFiling) EPS() float64 {
	return f.Financials.IncomeStatement.BasicEarningsPerShare
}
