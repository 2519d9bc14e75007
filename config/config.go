// Package config loads the terminal's settings from the environment and
// command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"

	"pos-terminal/orderclient"
)

const (
	CatalogHTTP     = "http"
	CatalogPostgres = "postgres"
)

// Config holds terminal configuration.
type Config struct {
	Addr          string        `env:"POS_ADDR" envDefault:":8082"`
	CatalogSource string        `env:"POS_CATALOG_SOURCE" envDefault:"http"`
	CatalogURL    string        `env:"POS_CATALOG_URL" envDefault:"http://127.0.0.1:8002"`
	DatabaseURL   string        `env:"POS_DATABASE_URL"`
	OrdersURL     string        `env:"POS_ORDERS_URL" envDefault:"http://127.0.0.1:8004/orders"`
	OrderPayload  string        `env:"POS_ORDER_PAYLOAD" envDefault:"body"`
	HTTPTimeout   time.Duration `env:"POS_HTTP_TIMEOUT" envDefault:"10s"`
	APIToken      string        `env:"POS_API_TOKEN"`
	LogLevel      string        `env:"POS_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig reads the environment, then lets flags in args override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.CatalogSource, "catalog-source", cfg.CatalogSource, "catalog source: http or postgres")
	fs.StringVar(&cfg.CatalogURL, "catalog-url", cfg.CatalogURL, "base URL of the catalog API")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres DSN for the postgres catalog source")
	fs.StringVar(&cfg.OrdersURL, "orders-url", cfg.OrdersURL, "orders collection URL of the Order Service")
	fs.StringVar(&cfg.OrderPayload, "order-payload", cfg.OrderPayload, "order create payload: body or query")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "timeout for outbound HTTP calls")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.CatalogSource {
	case CatalogHTTP:
		if c.CatalogURL == "" {
			errs = append(errs, errors.New("catalog url required"))
		}
	case CatalogPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database url required for postgres catalog source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog source %q", c.CatalogSource))
	}
	if c.OrdersURL == "" {
		errs = append(errs, errors.New("orders url required"))
	}
	if _, err := orderclient.ParseShape(c.OrderPayload); err != nil {
		errs = append(errs, err)
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http timeout must be > 0"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel for zap.
func (c Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.LogLevel)
}

// Shape returns the order payload shape. Validate has already checked it.
func (c Config) Shape() orderclient.PayloadShape {
	s, _ := orderclient.ParseShape(c.OrderPayload)
	return s
}
