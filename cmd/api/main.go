package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/budget-service/internal/config"
	"github.com/Dan9191/budget-service/internal/handler"
	"github.com/Dan9191/budget-service/internal/repository"
	"github.com/Dan9191/budget-service/internal/repository/dynamo"
	"github.com/Dan9191/budget-service/internal/repository/memory"
	"github.com/Dan9191/budget-service/internal/service"
	"github.com/Dan9191/budget-service/internal/utils"
	"github.com/Dan9191/budget-service/internal/utils/email"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize layers
	var opts []service.Option
	if cfg.SMTPEnabled() {
		opts = append(opts, service.WithNotifier(email.NewSender(cfg, logger)))
	}
	svc := service.NewService(store,
		utils.NewPasswordHasher(bcrypt.DefaultCost),
		utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		logger, opts...)
	h := handler.NewHandler(svc, logger)

	// Start server
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.NewRouter(h, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s (store: %s)", server.Addr, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorf("Server failed: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Warnf("Pending welcome emails were not sent: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (service.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres, config.DriverPgx:
		repo, err := repository.Open(ctx, cfg.StoreDriver, cfg.DBConn)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := repo.Migrate(ctx); err != nil {
				repo.Close()
				return nil, err
			}
			logger.Info("Database schema is up to date")
		}
		return repo, nil

	case config.DriverDynamoDB:
		store, err := dynamo.New(ctx, dynamo.Options{
			Region:            cfg.DynamoRegion,
			Endpoint:          cfg.DynamoEndpoint,
			UsersTable:        cfg.DynamoUsersTable,
			TransactionsTable: cfg.DynamoTransactionsTable,
		})
		if err != nil {
			return nil, err
		}
		if cfg.DynamoCreateTables {
			if err := store.EnsureTables(ctx); err != nil {
				return nil, err
			}
		}
		if err := store.Ping(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on exit")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
