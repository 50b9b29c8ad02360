package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/backtester/internal/domain"
)

const (
	defaultBaseURL = "https://api.polygon.io"

	// Rate limits conservadores por familia de endpoint. El plan básico
	// de Polygon permite ~5 req/min; los planes pagos cientos por segundo.
	// Estos valores asumen plan pago y dejan margen.
	referenceRatePerSec = 20 // /vX/reference/financials
	aggsRatePerSec      = 50 // /v1/open-close, /v2/aggs

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// Los mercados no cierran más de 3 días seguidos: si un precio no
	// aparece caminando 3 días hacia atrás, no existe para ese período.
	maxPriceWalkbackDays = 3

	defaultTimeout         = 10 * time.Second
	defaultReferenceSymbol = "SPY"
)

// Config agrupa los parámetros del client.
type Config struct {
	// BaseURL del provider. Vacío usa producción.
	BaseURL string
	// APIKey se envía como query param en cada request.
	APIKey string
	// Timeout por llamada HTTP individual. <= 0 usa el default.
	Timeout time.Duration
	// ReferenceSymbol es el instrumento que se sondea en IsMarketClosed.
	// Vacío usa SPY.
	ReferenceSymbol string
}

// Client es el HTTP client del provider con rate limiting, retries y la
// taxonomía de errores del dominio. Abre un único pool de conexiones
// por run; Close lo libera.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	reference string

	refLimiter  *rate.Limiter
	aggsLimiter *rate.Limiter
}

// NewClient crea un Client listo para usar.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ReferenceSymbol == "" {
		cfg.ReferenceSymbol = defaultReferenceSymbol
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		reference:   cfg.ReferenceSymbol,
		refLimiter:  rate.NewLimiter(referenceRatePerSec, 5),
		aggsLimiter: rate.NewLimiter(aggsRatePerSec, 10),
	}
}

// Close libera el pool de conexiones.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// get hace un GET con rate limiting y retries, y decodifica el body JSON
// en out. Reintenta 429/5xx y errores de red no-timeout con backoff
// exponencial. Un timeout NO se reintenta: se devuelve envuelto en
// domain.ErrTimeout y decide el caller. Respuestas 4xx se decodifican
// igual que las 2xx — el provider devuelve el envelope de error como
// JSON y la clasificación se hace por endpoint.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("request deadline exceeded: %w", domain.ErrTimeout)
			}
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("provider busy, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// isTimeout detecta deadlines agotados de red o de contexto.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// statusError clasifica un envelope con status != OK: credencial
// inválida es fatal, cualquier otro mensaje se mapea al not-found del
// endpoint que llamó.
func statusError(env envelope, notFound error, what string) error {
	if isCredentialError(env.Error) {
		return fmt.Errorf("%s: %q: %w", what, env.Error, domain.ErrInvalidCredential)
	}
	if env.Error != "" {
		return fmt.Errorf("%s: %q: %w", what, env.Error, notFound)
	}
	return fmt.Errorf("%s: status %q: %w", what, env.Status, notFound)
}

// isCredentialError distingue "credencial desconocida/inválida" de "no
// encontrado" inspeccionando el mensaje del envelope ERROR.
func isCredentialError(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "api key") || strings.Contains(m, "apikey")
}
