package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/grocerylist/internal/config"
	"github.com/dukerupert/grocerylist/internal/database"
	"github.com/dukerupert/grocerylist/internal/handler"
	"github.com/dukerupert/grocerylist/internal/logging"
	"github.com/dukerupert/grocerylist/internal/postgres"
	"github.com/dukerupert/grocerylist/internal/postgrest"
	"github.com/dukerupert/grocerylist/internal/server"
	"github.com/dukerupert/grocerylist/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	itemStore, closer, err := openStore(ctx, cfg.Datastore, logger)
	if err != nil {
		logger.Error("failed to open datastore", "driver", cfg.Datastore.Driver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	srv := server.New(itemStore, *cfg, logger)
	if rl := srv.RateLimiter(); rl != nil {
		go rl.RunCleanup(ctx, 5*time.Minute)
	}
	backups := srv.BackupManager()
	backups.Start(ctx)
	defer backups.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("grocery service listening", "addr", httpServer.Addr, "driver", cfg.Datastore.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStore builds the configured datastore and a closer releasing its
// resources.
func openStore(ctx context.Context, cfg config.DatastoreConfig, logger *slog.Logger) (handler.ItemStore, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite datastore", "path", cfg.Path)
		return store.NewItemStore(db), db, nil

	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres datastore")
		return postgres.NewItemStore(pool), closerFunc(func() error {
			pool.Close()
			return nil
		}), nil

	case config.DriverPostgREST:
		logger.Info("using postgrest datastore", "endpoint", cfg.EndpointURL, "table", cfg.Table)
		s := postgrest.NewItemStore(postgrest.Config{
			EndpointURL: cfg.EndpointURL,
			Credential:  cfg.Credential,
			Table:       cfg.Table,
			Timeout:     cfg.RequestTimeout,
		})
		return s, closerFunc(func() error { return nil }), nil

	default:
		return nil, nil, fmt.Errorf("unknown datastore driver %q", cfg.Driver)
	}
}
