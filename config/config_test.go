package config

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"pos-terminal/orderclient"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	return ParseConfig(flag.NewFlagSet("test", flag.ContinueOnError), args)
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)
	require.Equal(t, ":8082", cfg.Addr)
	require.Equal(t, CatalogHTTP, cfg.CatalogSource)
	require.Equal(t, "http://127.0.0.1:8004/orders", cfg.OrdersURL)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, orderclient.ShapeBody, cfg.Shape())
	lvl, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, lvl)
}

func TestEnvThenFlags(t *testing.T) {
	t.Setenv("POS_ORDER_PAYLOAD", "query")
	t.Setenv("POS_HTTP_TIMEOUT", "3s")
	t.Setenv("POS_ADDR", ":9000")

	cfg, err := parse(t, "-addr", ":9100")
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Addr, "flag overrides env")
	require.Equal(t, orderclient.ShapeQuery, cfg.Shape())
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("POS_CATALOG_SOURCE", "postgres")
	_, err := parse(t)
	require.Error(t, err)
	require.Contains(t, err.Error(), "database url required")

	_, err = parse(t, "-database-url", "postgres://localhost/pos")
	require.NoError(t, err)

	cfg := Config{
		CatalogSource: "ftp",
		OrdersURL:     "",
		OrderPayload:  "form",
		HTTPTimeout:   0,
		LogLevel:      "loud",
	}
	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"unknown catalog source", "orders url required", "payload shape", "http timeout", "loud"} {
		require.True(t, strings.Contains(err.Error(), want), "missing %q in %v", want, err)
	}
}
