package main

// GET    /catalog/products     - search the catalog snapshot
// GET    /catalog/categories   - list active categories
// GET    /catalog/suggest      - search-as-you-type titles
// POST   /catalog/refresh      - reload the catalog
// GET    /cart                 - show a user's cart
// POST   /cart/add             - add a product to the cart
// POST   /cart/quantity        - change or set a line quantity
// POST   /cart/remove          - remove a line
// POST   /cart/clear           - empty the cart
// POST   /checkout/order       - submit the cart to the Order Service
// GET    /orders               - list orders, optionally by status or user
// GET    /orders/{id}          - show one order
// PATCH  /orders/{id}/status   - move an order through its lifecycle
// POST   /orders/{id}/items    - add an item to an open order
// PUT    /orders/{id}/items/{itemID}
// DELETE /orders/{id}/items/{itemID}
// DELETE /orders/{id}

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pos-terminal/catalog"
	"pos-terminal/config"
	"pos-terminal/handler"
	"pos-terminal/orderclient"
	"pos-terminal/service"
	"pos-terminal/store"
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("terminal stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Catalog source ---
	var src catalog.Source
	switch cfg.CatalogSource {
	case config.CatalogPostgres:
		st, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open catalog database: %w", err)
		}
		defer st.Close()
		src = store.Source{Store: st, Log: logger.Named("catalog")}
	default:
		src = catalog.NewHTTPSource(cfg.CatalogURL, cfg.APIToken, cfg.HTTPTimeout, logger.Named("catalog"))
	}

	cat := catalog.New(src, logger.Named("catalog"))
	loadCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	if err := cat.Load(loadCtx); err != nil {
		logger.Warn("initial catalog load failed, starting with an empty catalog", zap.Error(err))
	}
	cancel()

	// --- Order Service ---
	orders := orderclient.New(orderclient.Config{
		BaseURL: cfg.OrdersURL,
		Shape:   cfg.Shape(),
		Token:   cfg.APIToken,
		Timeout: cfg.HTTPTimeout,
	}, orderclient.WithLogger(logger.Named("orders")))

	// --- Service ---
	svc := service.NewService(cat, orders, logger.Named("service"))
	var serviceInterface service.ServiceInterface = svc

	// --- Router ---
	r := mux.NewRouter()
	handler.NewHandler(serviceInterface, logger.Named("http")).RegisterRoutes(r)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("terminal listening", zap.String("addr", cfg.Addr), zap.String("catalog_source", cfg.CatalogSource))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPTimeout+5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
