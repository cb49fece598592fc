package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Ticker   TickerConfig   `mapstructure:"ticker"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Payments PaymentsConfig `mapstructure:"payments"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
	Seed bool   `mapstructure:"seed"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"` // consumer group of the ledger

	Partitions        int  `mapstructure:"partitions"`
	ReplicationFactor int  `mapstructure:"replication_factor"`
	RequireTopic      bool `mapstructure:"require_topic"` // fail startup when the topic cannot be ensured
}

type TickerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`    // debug, info, warn, error
	Encoding string `mapstructure:"encoding"` // json or console
	File     string `mapstructure:"file"`     // optional rotating log file
}

type LedgerConfig struct {
	NumWorkers int           `mapstructure:"num_workers"`
	SeenTTL    time.Duration `mapstructure:"seen_ttl"` // how long applied order ids are remembered
}

// PaymentsConfig holds the shared secret that signs account credits. Credits
// are disabled while it is empty.
type PaymentsConfig struct {
	Secret string `mapstructure:"secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults
	setDefaults(v)

	// 3. Configure Viper to read Environment Variables ("app.port" -> "APP_PORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys so nested structs are populated
	bindEnv(v, "app.port", "app.env", "app.seed")
	bindEnv(v, "database.driver", "database.dsn")
	bindEnv(v, "redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.snapshot_ttl")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.group_id",
		"kafka.partitions", "kafka.replication_factor", "kafka.require_topic")
	bindEnv(v, "ticker.interval")
	bindEnv(v, "logger.level", "logger.encoding", "logger.file")
	bindEnv(v, "cors.allowed_origins")
	bindEnv(v, "ledger.num_workers", "ledger.seen_ttl")
	bindEnv(v, "payments.secret")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// 6. Basic Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":3002")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.seed", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "dashboard.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", time.Hour)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "orders")
	v.SetDefault("kafka.group_id", "order-ledger")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.require_topic", false)

	v.SetDefault("ticker.interval", 2*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.file", "")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("ledger.num_workers", 4)
	v.SetDefault("ledger.seen_ttl", 24*time.Hour)

	v.SetDefault("payments.secret", "")
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn cannot be empty")
	}
	if c.Ticker.Interval <= 0 {
		return fmt.Errorf("ticker interval must be positive, got %s", c.Ticker.Interval)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Kafka.Enabled && (c.Kafka.Partitions <= 0 || c.Kafka.ReplicationFactor <= 0) {
		return fmt.Errorf("kafka partitions and replication factor must be positive")
	}
	if c.Ledger.NumWorkers <= 0 {
		return fmt.Errorf("ledger workers must be positive, got %d", c.Ledger.NumWorkers)
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
