// Package server initializes and runs the feedvault server.
// It connects the database, runs migrations, selects the storage backend,
// wires the payment gateways that are configured, starts the HTTP API and
// the refund sweeper, and shuts both down on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/gateways/btcpay"
	"github.com/dmitrijs2005/feedvault/internal/server/gateways/paypal"
	"github.com/dmitrijs2005/feedvault/internal/server/httpapi"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedvault/internal/server/services"
	"github.com/dmitrijs2005/feedvault/internal/server/storage"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	http      *httpapi.Server
	downloads *services.DownloadService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := storage.New(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var invoices services.InvoiceGateway
	if c.BTCPayHost != "" && c.BTCPayAPIKey != "" {
		invoices = btcpay.NewClient(c.BTCPayHost, c.BTCPayAPIKey, c.BTCPayStoreID, nil)
	} else {
		logger.Warn(ctx, "btcpay not configured, crypto payments disabled")
	}

	var orders services.OrderGateway
	if c.PayPalClientID != "" && c.PayPalSecret != "" {
		orders = paypal.NewClient(c.PayPalBaseURL, c.PayPalClientID, c.PayPalSecret, nil)
	} else {
		logger.Warn(ctx, "paypal not configured, paypal payments disabled")
	}

	ds := services.NewDownloadService(db, rm, store, c, logger)
	svc := httpapi.Services{
		Users:     services.NewUserService(db, rm, c, logger),
		Feed:      services.NewFeedService(db, rm, store, logger),
		Downloads: ds,
		Payments:  services.NewPaymentService(db, rm, invoices, orders, c, logger),
		Support:   services.NewSupportService(db, rm, logger),
		Admin:     services.NewAdminService(db, rm, logger),
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		http:      httpapi.NewServer(c, logger, svc),
		downloads: ds,
	}, nil
}

// Run blocks until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.downloads.RunRefundSweeper(ctx, app.config.RefundSweepInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
}
