package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/accounts"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/api"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/generator"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/hub"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/journal"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/orders"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/registry"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/repository"
	"github.com/priya3054/ZerodhaClone/pkg/config"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

func main() {
	seed := flag.Bool("seed", false, "insert the demo portfolio when the tables are empty")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	db, err := repository.OpenDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	store := repository.NewGormStore(db)
	defer store.Close()

	if *seed || cfg.App.Seed {
		seeded, err := store.Seed(context.Background())
		if err != nil {
			logger.Fatal("Failed to seed database", zap.Error(err))
		}
		logger.Info("Seed finished", zap.Bool("inserted", seeded))
	}

	prices := newPriceStore(cfg, logger)
	defer prices.Close()

	orderJournal := newJournal(cfg, logger)
	defer func() {
		if err := orderJournal.Close(); err != nil {
			logger.Error("Error closing order journal", zap.Error(err))
		}
	}()

	// Dependency Injection: the hub owns the subscribers, everything else
	// publishes through it.
	wsHub := hub.NewHub(logger)
	instruments := registry.NewRegistry(store, store)
	ticks := generator.NewTickGenerator(
		logger,
		instruments,
		wsHub,
		prices,
		generator.NewRealRand(),
		generator.RealClock{},
		cfg.Ticker.Interval,
	)
	wsHub.OnConnect(func() { ticks.Start() })

	intake := orders.NewIntake(store, wsHub, orderJournal, logger)
	wsHub.OnRequest(protocol.EventPlaceOrder, intake.HandlePlaceOrder)

	srv := api.NewServer(api.Deps{
		Holdings:    store,
		Positions:   store,
		Orders:      store,
		Prices:      prices,
		Instruments: instruments,
		Placer:      intake,
		Accounts:    accounts.NewService(store, wsHub, logger),
		Hub:         wsHub,

		CreditSecret: []byte(cfg.Payments.Secret),
	}, cfg.CORS.AllowedOrigins, logger)

	httpServer := &http.Server{Addr: cfg.App.Port, Handler: srv.Handler()}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticks.Stop()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	wsHub.Shutdown()
	logger.Info("Shutdown Complete")
}

func newPriceStore(cfg *config.Config, logger *zap.Logger) repository.PriceStore {
	if !cfg.Redis.Enabled {
		return repository.NopPriceStore{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Price snapshots enabled", zap.String("addr", cfg.Redis.Addr))
	return repository.NewRedisPriceStore(rdb, cfg.Redis.SnapshotTTL)
}

func newJournal(cfg *config.Config, logger *zap.Logger) journal.Journal {
	if !cfg.Kafka.Enabled {
		return journal.NopJournal{}
	}

	dialer := &journal.RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 5 * time.Second}}
	spec := journal.TopicSpecFrom(cfg.Kafka)
	if err := journal.NewTopicCreator(logger, dialer, journal.RealSleeper{}).Ensure(context.Background(), cfg.Kafka.Brokers, spec); err != nil {
		if cfg.Kafka.RequireTopic {
			logger.Fatal("Order topic unavailable", zap.String("topic", spec.Name), zap.Error(err))
		}
		logger.Warn("Order topic not ensured, relying on broker auto-create", zap.String("topic", spec.Name), zap.Error(err))
	}

	logger.Info("Order journal enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return journal.NewKafkaJournal(journal.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger), logger)
}
