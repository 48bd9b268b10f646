package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/banklink/internal/banklink/http"
	"github.com/aussiebroadwan/banklink/internal/banklink/service"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/internal/banklink/store/drivers/sqlite"
	"github.com/aussiebroadwan/banklink/pkg/banksdk"
	"github.com/aussiebroadwan/banklink/pkg/cryptox"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the banklink daemon with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db  store.Store
	sdk *banksdk.Client

	// Services
	tokenService   *service.TokenService
	connectService *service.ConnectService
	dataService    *service.DataService
	syncService    *service.SyncService
	scheduler      *service.Scheduler

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "banklink",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("BANKLINK_CLIENT_ID is required")
	}

	// Set master key path for token encryption at rest
	cryptox.SetMasterKeyPath(app.cfg.MasterKeyPath)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.sdk = banksdk.NewClient(banksdk.Config{
		AuthBaseURL:       cfg.AuthBaseURL,
		APIBaseURL:        cfg.APIBaseURL,
		ClientID:          cfg.ClientID,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	app.initServices()

	// Load any persisted tokens so a restart resumes the existing connection.
	if err := app.tokenService.Load(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to load stored tokens: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.scheduler.Start()

	app.logger.Info("banklink starting",
		"addr", app.cfg.ListenAddr,
		"environment", app.cfg.Environment,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down banklink...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the scheduler after the server so no new syncs start mid-shutdown
	app.scheduler.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("banklink stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = service.NewTokenService(app.sdk, store.NewTokenVault(app.db))
	app.connectService = service.NewConnectService(app.sdk, app.tokenService, app.cfg.RedirectURI)
	app.dataService = service.NewDataService(app.sdk, app.tokenService, app.db, app.cfg.Environment)

	app.syncService = service.NewSyncService(app.dataService, app.tokenService, app.db)
	if app.cfg.SyncWindow > 0 {
		app.syncService.Window = app.cfg.SyncWindow
	}

	app.scheduler = service.NewScheduler(
		app.syncService,
		app.logger,
		app.cfg.SyncInterval,
		app.cfg.SyncMaxRetries,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.TokenService = app.tokenService
	router.ConnectService = app.connectService
	router.DataService = app.dataService
	router.SyncService = app.syncService
	router.Scheduler = app.scheduler
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
