package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/priya3054/ZerodhaClone/pkg/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.App.Port != ":3002" {
		t.Errorf("Expected default port :3002, got %s", cfg.App.Port)
	}
	if cfg.Ticker.Interval != 2*time.Second {
		t.Errorf("Expected default tick interval 2s, got %s", cfg.Ticker.Interval)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver by default, got %s", cfg.Database.Driver)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Error("Redis and Kafka should be disabled by default")
	}
	if cfg.Ledger.NumWorkers != 4 || cfg.Kafka.GroupID != "order-ledger" {
		t.Errorf("Unexpected ledger defaults: workers=%d group=%s", cfg.Ledger.NumWorkers, cfg.Kafka.GroupID)
	}
	if cfg.Kafka.Partitions != 4 || cfg.Kafka.ReplicationFactor != 1 {
		t.Errorf("Unexpected topic defaults: partitions=%d rf=%d", cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor)
	}
	if cfg.Payments.Secret != "" {
		t.Error("Credits must be disabled by default")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("APP_PORT", ":9999")
	t.Setenv("TICKER_INTERVAL", "500ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_PARTITIONS", "12")
	t.Setenv("PAYMENTS_SECRET", "shh")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.App.Port != ":9999" {
		t.Errorf("Expected :9999, got %s", cfg.App.Port)
	}
	if cfg.Ticker.Interval != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %s", cfg.Ticker.Interval)
	}
	if !cfg.Redis.Enabled {
		t.Error("Expected redis to be enabled from env")
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Partitions != 12 {
		t.Errorf("Expected 12 partitions, got %d", cfg.Kafka.Partitions)
	}
	if cfg.Payments.Secret != "shh" {
		t.Errorf("Expected payments secret from env, got %q", cfg.Payments.Secret)
	}
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mongo")

	if _, err := config.LoadConfig(); err == nil {
		t.Error("Expected error for unsupported database driver")
	}
}

func TestLoadConfig_RejectsZeroWorkers(t *testing.T) {
	t.Setenv("LEDGER_NUM_WORKERS", "0")

	if _, err := config.LoadConfig(); err == nil {
		t.Error("Expected error for zero ledger workers")
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LoggerConfig{
		Level:    "debug",
		Encoding: "console",
		File:     filepath.Join(t.TempDir(), "gateway.log"),
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("hello")

	if _, err := config.NewLogger(config.LoggerConfig{Level: "loud"}); err == nil {
		t.Error("Expected error for invalid level")
	}
	if _, err := config.NewLogger(config.LoggerConfig{Encoding: "xml"}); err == nil {
		t.Error("Expected error for invalid encoding")
	}
}
