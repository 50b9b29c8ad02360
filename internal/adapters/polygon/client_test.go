package polygon_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/internal/adapters/polygon"
	"github.com/alejandrodnm/backtester/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestClient(srv *httptest.Server) *polygon.Client {
	return polygon.NewClient(polygon.Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
}

const financialsFixture = `{
	"status": "OK",
	"request_id": "req-001",
	"results": [
		{
			"company_name": "Apple Inc.",
			"fiscal_year": "2022",
			"fiscal_period": "Q4",
			"filing_date": "2022-10-28",
			"end_date": "2022-09-24",
			"financials": {
				"income_statement": {
					"basic_earnings_per_share": {"value": 1.29, "unit": "USD / shares"},
					"revenues": {"value": 90146000000},
					"net_income_loss": {"value": 20721000000}
				},
				"cash_flow_statement": {
					"net_cash_flow": {"value": 1500000000}
				}
			}
		},
		{
			"company_name": "Apple Inc.",
			"fiscal_year": "2022",
			"fiscal_period": "Q3",
			"filing_date": "2022-07-29",
			"end_date": "2022-06-25",
			"financials": {
				"income_statement": {
					"basic_earnings_per_share": {"value": 1.20}
				},
				"cash_flow_statement": {}
			}
		}
	]
}`

func TestGetFinancials_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vX/reference/financials", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "AAPL", q.Get("ticker"))
		assert.Equal(t, "2022-11-04", q.Get("period_of_report_date.lte"))
		assert.Equal(t, "2", q.Get("limit"))
		assert.Equal(t, "filing_date", q.Get("sort"))
		assert.Equal(t, "test-key", q.Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(financialsFixture))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	current, previous, err := client.GetFinancials(context.Background(), "AAPL", day("2022-11-04"))

	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", current.CompanyName)
	assert.Equal(t, current.CompanyName, previous.CompanyName)
	assert.True(t, current.FilingDate.After(previous.FilingDate))
	assert.InDelta(t, 1.29, current.EPS(), 1e-9)
	assert.InDelta(t, 1.20, previous.EPS(), 1e-9)
	assert.InDelta(t, 90146000000, current.Financials.IncomeStatement.Revenues, 1)
}

func TestGetFinancials_FewerThanTwo(t *testing.T) {
	fixture := `{"status": "OK", "results": [{"company_name": "NewCo", "filing_date": "2022-10-28", "financials": {}}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, _, err := client.GetFinancials(context.Background(), "NEWCO", day("2022-11-04"))
	assert.ErrorIs(t, err, domain.ErrFinancialsNotFound)
}

func TestGetFinancials_InvalidCredential(t *testing.T) {
	fixture := `{"status": "ERROR", "request_id": "req-401", "error": "Unknown API Key"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, _, err := client.GetFinancials(context.Background(), "AAPL", day("2022-11-04"))

	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	assert.NotErrorIs(t, err, domain.ErrFinancialsNotFound)
}

func TestGetFinancials_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := polygon.NewClient(polygon.Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 20 * time.Millisecond,
	})

	_, _, err := client.GetFinancials(context.Background(), "AAPL", day("2022-11-04"))
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

// priceServer sirve /v1/open-close con precios solo en los días dados y
// /v2/aggs/ticker/{t}/prev con el último cierre. Cuenta requests.
func priceServer(t *testing.T, closes map[string]float64, latest float64, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")

		if strings.HasSuffix(r.URL.Path, "/prev") {
			fmt.Fprintf(w, `{"status": "OK", "results": [{"t": 1667520000000, "c": %g}]}`, latest)
			return
		}

		parts := strings.Split(r.URL.Path, "/")
		date := parts[len(parts)-1]
		if price, ok := closes[date]; ok {
			fmt.Fprintf(w, `{"status": "OK", "symbol": "AAPL", "close": %g}`, price)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status": "NOT_FOUND", "error": "Data not found."}`)
	}))
}

func TestGetPrice_Today(t *testing.T) {
	srv := priceServer(t, nil, 141.86, nil)
	defer srv.Close()

	client := newTestClient(srv)
	price, err := client.GetPrice(context.Background(), "AAPL", time.Now())

	require.NoError(t, err)
	assert.Equal(t, 141.86, price)
}

func TestGetPrice_PastDate(t *testing.T) {
	srv := priceServer(t, map[string]float64{"2022-11-04": 138.38}, 0, nil)
	defer srv.Close()

	client := newTestClient(srv)
	price, err := client.GetPrice(context.Background(), "AAPL", day("2022-11-04"))

	require.NoError(t, err)
	assert.Equal(t, 138.38, price)
}

func TestGetPrice_WalkbackWithinThreeDays(t *testing.T) {
	// 2022-11-07 sin precio; el último día hábil fue el viernes 04.
	closes := map[string]float64{"2022-11-04": 138.38}
	srv := priceServer(t, closes, 0, nil)
	defer srv.Close()

	client := newTestClient(srv)

	walked, err := client.GetPrice(context.Background(), "AAPL", day("2022-11-07"))
	require.NoError(t, err)

	direct, err := client.GetPrice(context.Background(), "AAPL", day("2022-11-04"))
	require.NoError(t, err)

	assert.Equal(t, direct, walked)
}

func TestGetPrice_WalkbackExhausted(t *testing.T) {
	// Precio solo 4 días antes de la fecha pedida → fuera del límite.
	closes := map[string]float64{"2022-11-04": 138.38}
	srv := priceServer(t, closes, 0, nil)
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.GetPrice(context.Background(), "AAPL", day("2022-11-08"))

	assert.ErrorIs(t, err, domain.ErrPriceNotFound)
}

func TestGetPrice_InvalidCredentialNotPriceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status": "ERROR", "error": "Unknown API Key"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	_, err := client.GetPrice(context.Background(), "AAPL", day("2022-11-04"))

	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	assert.NotErrorIs(t, err, domain.ErrPriceNotFound)
}

func TestIsMarketClosed(t *testing.T) {
	closes := map[string]float64{"2022-11-04": 380.0}
	srv := priceServer(t, closes, 0, nil)
	defer srv.Close()

	client := newTestClient(srv)

	closed, err := client.IsMarketClosed(context.Background(), day("2022-11-05"))
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = client.IsMarketClosed(context.Background(), day("2022-11-04"))
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestGetTickerDate_JoinsBothFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/vX/reference/financials") {
			w.Write([]byte(financialsFixture))
			return
		}
		fmt.Fprint(w, `{"status": "OK", "symbol": "AAPL", "close": 138.38}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	ticker := domain.Ticker{Symbol: "AAPL", Sector: "Technology"}

	td, err := client.GetTickerDate(context.Background(), ticker, day("2022-11-04"))
	require.NoError(t, err)

	assert.Equal(t, ticker, td.Ticker)
	assert.Equal(t, 138.38, td.Price)
	assert.True(t, td.CurrentFiling.FilingDate.After(td.PreviousFiling.FilingDate))
}

func TestGetTickerDate_FailsIfEitherSideFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/vX/reference/financials") {
			w.Write([]byte(financialsFixture))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status": "NOT_FOUND", "error": "Data not found."}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	ticker := domain.Ticker{Symbol: "AAPL", Sector: "Technology"}

	_, err := client.GetTickerDate(context.Background(), ticker, day("2022-11-04"))
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)
}

func TestGetDailyPriceSeries_Pagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		if r.URL.Query().Get("cursor") == "page2" {
			fmt.Fprint(w, `{"status": "OK", "results": [
				{"t": 1667779200000, "c": 102.0},
				{"t": 1667865600000, "c": 103.0}
			]}`)
			return
		}
		fmt.Fprintf(w, `{"status": "OK", "results": [
			{"t": 1667520000000, "c": 100.0},
			{"t": 1667606400000, "c": 101.0}
		], "next_url": "%s/v2/aggs/ticker/AAPL/range/1/day/2022-11-04/2022-11-08?cursor=page2"}`, srv.URL)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	series, err := client.GetDailyPriceSeries(context.Background(), "AAPL", day("2022-11-04"), day("2022-11-08"))

	require.NoError(t, err)
	require.Len(t, series, 4)
	assert.Equal(t, 100.0, series.First().Close)
	assert.Equal(t, 103.0, series.Last().Close)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Date.Before(series[i].Date))
	}
}

func TestGetDailyPriceSeries_Idempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "OK", "results": [
			{"t": 1667520000000, "c": 100.0},
			{"t": 1667606400000, "c": 101.0}
		]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	ctx := context.Background()

	first, err := client.GetDailyPriceSeries(ctx, "AAPL", day("2022-11-04"), day("2022-11-05"))
	require.NoError(t, err)
	second, err := client.GetDailyPriceSeries(ctx, "AAPL", day("2022-11-04"), day("2022-11-05"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status": "OK", "symbol": "AAPL", "close": 138.38}`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	price, err := client.GetPrice(context.Background(), "AAPL", day("2022-11-04"))

	require.NoError(t, err)
	assert.Equal(t, 138.38, price)
	assert.Equal(t, int64(2), calls.Load())
}
