// Package app assembles the storage backend, services and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/dynamodb"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/redis"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pgclient "github.com/vadimbarashkov/shortlink/pkg/postgres"
	redisclient "github.com/vadimbarashkov/shortlink/pkg/redis"
)

// App owns the store connection and the HTTP handler built on top of it.
type App struct {
	cfg     *config.Config
	logger  *httplog.Logger
	handler http.Handler
	closers []func() error
}

// New connects the configured store backend and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *httplog.Logger) (*App, error) {
	const op = "app.New"

	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	instrumented := metrics.NewInstrumentedStore(store)
	recorder := metrics.NewRecorder()
	shortener := service.NewShortener(instrumented, cfg.ShortDomain, recorder)
	resolver := service.NewResolver(instrumented, recorder)

	a.handler = delivery.NewRouter(logger, shortener, resolver, cfg.CORS.AllowedOrigins...)

	logger.Info("app initialized",
		slog.String("env", cfg.Env),
		slog.String("store", cfg.Store.Backend),
		slog.String("short_domain", cfg.ShortDomain),
	)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (metrics.Store, error) {
	switch a.cfg.Store.Backend {
	case config.BackendPostgres:
		pg := a.cfg.Postgres

		db, err := pgclient.New(
			ctx,
			pg.DSN(),
			pgclient.WithConnMaxIdleTime(pg.ConnMaxIdleTime),
			pgclient.WithConnMaxLifetime(pg.ConnMaxLifetime),
			pgclient.WithMaxIdleConns(pg.MaxIdleConns),
			pgclient.WithMaxOpenConns(pg.MaxOpenConns),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := pgclient.RunMigrations(pg.MigrationsPath, pg.DSN()); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return postgres.NewMappingRepository(db), nil

	case config.BackendRedis:
		rc := a.cfg.Redis

		client, err := redisclient.New(ctx, redisclient.Options{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			PoolSize:     rc.PoolSize,
			MinIdleConns: rc.MinIdleConns,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)

		return redis.NewMappingRepository(client), nil

	case config.BackendDynamoDB:
		dc := a.cfg.DynamoDB

		client, err := dynamodb.NewClient(ctx, dynamodb.ClientOptions{
			Endpoint:        dc.Endpoint,
			Region:          dc.Region,
			AccessKeyID:     dc.AccessKeyID,
			SecretAccessKey: dc.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}

		return dynamodb.NewMappingRepository(client, dc.Table), nil

	case config.BackendMemory:
		return memory.NewMappingRepository(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}

// Run serves HTTP until ctx is cancelled, then shuts the server down and closes the store.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	defer a.Close()

	server := &http.Server{
		Addr:           a.cfg.HTTPServer.Addr(),
		Handler:        a.handler,
		ReadTimeout:    a.cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   a.cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    a.cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: a.cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		a.logger.Info("starting server", slog.String("addr", server.Addr))

		switch a.cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(a.cfg.HTTPServer.CertFile, a.cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		a.logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
