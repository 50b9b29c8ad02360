package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Market   MarketConfig   `yaml:"market"`
	Report   ReportConfig   `yaml:"report"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el run del backtest.
type BacktestConfig struct {
	MonthsBack  int `yaml:"months_back"`
	MaxParallel int `yaml:"max_parallel"`
	TopN        int `yaml:"top_n"`
}

// MarketConfig contiene el acceso al proveedor de datos de mercado.
type MarketConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ReportConfig controla la curva de valoración y sus estadísticas.
type ReportConfig struct {
	Benchmark    string `yaml:"benchmark"`
	ResampleDays int    `yaml:"resample_days"`
}

// StorageConfig controla dónde se cachean las series de precios.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if cfg.Market.APIKey == "" {
		return nil, fmt.Errorf("config.Load: missing API key: set market.api_key or POLYGON_API_KEY")
	}

	return &cfg, nil
}

// MarketTimeout devuelve el timeout por request como time.Duration.
func (c *Config) MarketTimeout() time.Duration {
	return time.Duration(c.Market.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.MonthsBack <= 0 {
		cfg.Backtest.MonthsBack = 12
	}
	if cfg.Backtest.MaxParallel <= 0 {
		cfg.Backtest.MaxParallel = 8
	}
	if cfg.Backtest.TopN <= 0 {
		cfg.Backtest.TopN = 5
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = "https://api.polygon.io"
	}
	if cfg.Market.TimeoutSeconds <= 0 {
		cfg.Market.TimeoutSeconds = 10
	}
	if cfg.Report.Benchmark == "" {
		cfg.Report.Benchmark = "SPY"
	}
	if cfg.Report.ResampleDays <= 0 {
		cfg.Report.ResampleDays = 5
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backtester.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// universeFile es el formato YAML del universo de tickers.
type universeFile struct {
	Tickers []struct {
		Symbol string `yaml:"symbol"`
		Sector string `yaml:"sector"`
	} `yaml:"tickers"`
}

// LoadUniverse carga la lista de tickers con su sector desde un YAML.
func LoadUniverse(path string) ([]domain.Ticker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadUniverse: read %q: %w", path, err)
	}

	var file universeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config.LoadUniverse: parse YAML: %w", err)
	}
	if len(file.Tickers) == 0 {
		return nil, fmt.Errorf("config.LoadUniverse: %q has no tickers", path)
	}

	universe := make([]domain.Ticker, 0, len(file.Tickers))
	seen := make(map[string]bool, len(file.Tickers))
	for _, t := range file.Tickers {
		if t.Symbol == "" || t.Sector == "" {
			return nil, fmt.Errorf("config.LoadUniverse: ticker entry needs symbol and sector, got %+v", t)
		}
		if seen[t.Symbol] {
			continue
		}
		seen[t.Symbol] = true
		universe = append(universe, domain.Ticker{Symbol: t.Symbol, Sector: t.Sector})
	}
	return universe, nil
}
