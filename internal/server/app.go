// Package server initializes and runs the auth service: it wires the
// database, the revocation backend, and the HTTP server, and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/server/auth"
	"github.com/dmitrijs2005/taskboard/internal/server/config"
	"github.com/dmitrijs2005/taskboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskboard/internal/server/revocation"
	"github.com/dmitrijs2005/taskboard/internal/server/services"
	"github.com/dmitrijs2005/taskboard/internal/server/web"
)

// sweepInterval is how often expired refresh rows are garbage collected.
// Correctness does not depend on it; expiry is checked per row.
const sweepInterval = time.Hour

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	redis          *revocation.RedisKV
	sessionService *services.SessionService
	httpServer     *web.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	redisKV := revocation.NewRedisKV(revocation.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	revocationList := revocation.NewList(redisKV, logger)

	issuer := auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	hasher := auth.NewPasswordHasher()

	sessions := services.NewSessionService(db, rm, issuer, hasher, revocationList, cfg, logger)

	httpServer := web.NewServer(cfg.EndpointAddrHTTP, logger, sessions,
		rm.Users(db), issuer, revocationList, cfg.RefreshTokenValidityDuration)

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisKV,
		sessionService: sessions,
		httpServer:     httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.sessionService.SweepExpired(ctx)
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startSweeper(ctx)
	}()

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, "error closing redis client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
