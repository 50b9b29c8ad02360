package polygon

// DTOs raw del REST API del provider. Solo se usan dentro de este
// paquete; la conversión a entidades de dominio vive en mapping.go.

// envelope es el sobre común de todas las respuestas.
type envelope struct {
	Status    string `json:"status"` // "OK" | "ERROR" | "NOT_FOUND"
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (e envelope) ok() bool { return e.Status == "OK" }

// --- /vX/reference/financials ---

// financialsResponse es la respuesta del endpoint de filings, ordenados
// por filing date descendente y limitados a N resultados.
type financialsResponse struct {
	envelope
	Results []rawFiling `json:"results"`
}

// rawFiling es un filing de fundamentales tal cual lo devuelve el API.
type rawFiling struct {
	CompanyName  string        `json:"company_name"`
	FiscalYear   string        `json:"fiscal_year"`
	FiscalPeriod string        `json:"fiscal_period"`
	FilingDate   string        `json:"filing_date"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Financials   rawStatements `json:"financials"`
}

// rawStatements agrupa los estados por nombre de concepto.
// Cada concepto es un data point con `value`.
type rawStatements struct {
	IncomeStatement   map[string]rawDataPoint `json:"income_statement"`
	CashFlowStatement map[string]rawDataPoint `json:"cash_flow_statement"`
}

// rawDataPoint es un valor numérico etiquetado del filing.
type rawDataPoint struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Label string  `json:"label,omitempty"`
}

// --- precios ---

// rawAgg es una barra agregada (t en epoch millis, c = close).
type rawAgg struct {
	T int64   `json:"t"`
	C float64 `json:"c"`
}

// prevCloseResponse es la respuesta de /v2/aggs/ticker/{t}/prev
// (último cierre, para "hoy").
type prevCloseResponse struct {
	envelope
	Ticker  string   `json:"ticker"`
	Results []rawAgg `json:"results"`
}

// openCloseResponse es la respuesta de /v1/open-close/{t}/{fecha}
// (cierre histórico de un día concreto).
type openCloseResponse struct {
	envelope
	Symbol string  `json:"symbol"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
}

// aggsRangeResponse es la respuesta paginada de
// /v2/aggs/ticker/{t}/range/1/day/{start}/{end}. NextURL está presente
// mientras queden páginas.
type aggsRangeResponse struct {
	envelope
	Ticker  string   `json:"ticker"`
	Results []rawAgg `json:"results"`
	NextURL string   `json:"next_url,omitempty"`
}
