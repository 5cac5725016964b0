package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/atayatoko/pos-core/config"
	"github.com/atayatoko/pos-core/internal/catalog"
	catalogrepo "github.com/atayatoko/pos-core/internal/catalog/repository"
	catalogusecase "github.com/atayatoko/pos-core/internal/catalog/usecase"
	"github.com/atayatoko/pos-core/internal/checkout"
	checkoutusecase "github.com/atayatoko/pos-core/internal/checkout/usecase"
	"github.com/atayatoko/pos-core/internal/importer"
	"github.com/atayatoko/pos-core/internal/ledger"
	ledgerrepo "github.com/atayatoko/pos-core/internal/ledger/repository"
	"github.com/atayatoko/pos-core/internal/sales"
	salesrepo "github.com/atayatoko/pos-core/internal/sales/repository"
	"github.com/atayatoko/pos-core/internal/server"
	"github.com/atayatoko/pos-core/pkg/broker"
	"github.com/atayatoko/pos-core/pkg/cache"
	"github.com/atayatoko/pos-core/pkg/logger"
	"github.com/atayatoko/pos-core/pkg/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.LoadEnv()

	appLogger := logger.NewZapLogger(&logger.Config{
		IsDevelopment:     cfg.Server.AppEnv == "dev",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	appLogger.Info("starting pos-core",
		zap.String("app_env", cfg.Server.AppEnv),
		zap.String("store_driver", cfg.Store.Driver))

	var (
		catalogRepo catalog.Repository
		ledgerRepo  ledger.Repository
		salesRepo   sales.Repository
		locker      checkout.Locker
		publisher   broker.Publisher
	)

	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("postgres connected", zap.String("host", cfg.Postgres.Host))

		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))

		kafkaPublisher := broker.NewKafkaPublisher(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		defer kafkaPublisher.Close()

		catalogRepo = catalogrepo.NewPGRepository(db)
		ledgerRepo = ledgerrepo.NewPGRepository(db)
		salesRepo = salesrepo.NewPGRepository(db)
		locker = redisClient
		publisher = kafkaPublisher

	case "memory":
		// Single-node mode: the ledger shares the catalog store so
		// check-and-subtract stays atomic, and locks live in-process.
		store := catalogrepo.NewMemory()
		catalogRepo = store
		ledgerRepo = ledgerrepo.NewMemory(store)
		salesRepo = salesrepo.NewMemory()
		locker = checkout.NewMemoryLocker()
		publisher = broker.NopPublisher{}

	default:
		appLogger.Fatal("unknown store driver", zap.String("driver", cfg.Store.Driver))
	}

	catalogUC := catalogusecase.NewCatalogUseCase(catalogRepo, appLogger)
	checkoutUC := checkoutusecase.NewCheckoutUseCase(
		ledgerRepo, salesRepo, locker, publisher, appLogger, cfg.Checkout)
	reconciler := importer.NewReconciler(catalogRepo, appLogger)

	srv := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      server.New(catalogUC, checkoutUC, ledgerRepo, salesRepo, reconciler, appLogger).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		appLogger.Info("http server listening", zap.String("addr", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
