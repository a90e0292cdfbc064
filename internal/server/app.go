// Package server initializes and runs the mirror: it opens the database,
// applies migrations and serves the HTTP API until interrupted.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/obralink/obralink/internal/logging"
	"github.com/obralink/obralink/internal/server/auth"
	"github.com/obralink/obralink/internal/server/config"
	"github.com/obralink/obralink/internal/server/documents"
	"github.com/obralink/obralink/internal/server/events"
	"github.com/obralink/obralink/internal/server/httpapi"
	"github.com/obralink/obralink/internal/server/repositories/repomanager"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	manager repomanager.RepositoryManager
	handler http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()

	entitiesRepo := manager.Entities(db)
	authSvc := auth.NewService(manager.Users(db), entitiesRepo, cfg.SecretKey, cfg.AccessTokenValidityDuration)
	docSvc := documents.NewService(cfg)
	hub := events.NewHub()

	handler := httpapi.NewRouter(authSvc, entitiesRepo, docSvc, hub, []byte(cfg.SecretKey), logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		manager: manager,
		handler: handler,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	if err := app.manager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.logger.Info(ctx, "starting mirror server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "server stopped", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}

	app.logger.Info(context.Background(), "mirror server stopped")
	return nil
}
