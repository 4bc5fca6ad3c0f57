// Package server wires configuration, storage, the auth services and the
// HTTP API together and runs them until the process is signalled.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hefi-app/hefi/internal/logging"
	"github.com/hefi-app/hefi/internal/server/auth"
	"github.com/hefi-app/hefi/internal/server/config"
	"github.com/hefi-app/hefi/internal/server/repositories/repomanager"
	"github.com/hefi-app/hefi/internal/server/rest"
	"github.com/hefi-app/hefi/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	authService *services.AuthService
	limiter     rest.Limiter
	closers     []io.Closer
}

// NewApp validates c, opens storage and builds the services. A missing JWT
// key is an error here.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	if c.DatabaseDSN == config.MemoryDSN {
		logger.Warn(ctx, "using in-memory credential store; data is lost on exit")
		app.repomanager = repomanager.NewInMemoryRepositoryManager()
	} else {
		pm, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.repomanager = pm
		app.closers = append(app.closers, pm)
	}

	if c.MigrateOnStart {
		if err := app.repomanager.RunMigrations(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}

	signer, err := auth.NewSigner(c.JWTKey, c.JWTIssuer, c.JWTAudience, c.AccessTokenLifetime())
	if err != nil {
		app.Close()
		return nil, err
	}
	tokens := services.NewRefreshTokenManager(app.repomanager, c.RefreshTokenLifetime)
	app.authService = services.NewAuthService(app.repomanager, auth.NewBcryptHasher(c.BcryptCost), signer, tokens, logger)

	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.limiter = rest.NewRedisLimiter(client, c.RateLimitPerMinute, time.Minute)
		app.closers = append(app.closers, client)
	}

	return app, nil
}

func (app *App) routerConfig() rest.RouterConfig {
	return rest.RouterConfig{
		CORSAllowedOrigins: app.config.CORSAllowedOrigins,
		AdminKey:           app.config.AdminInitKey,
		Limiter:            app.limiter,
	}
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
	router := rest.NewRouter(app.authService, app.repomanager, app.logger, app.routerConfig())
	s := rest.NewHTTPServer(app.config.HTTPAddr, router, app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a signal arrives, then closes storage.
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

	wg.Wait()
	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database pool and the Redis client.
func (app *App) Close() {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil
}
