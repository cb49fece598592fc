package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// KafkaReader abstracts the order journal stream
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// RedisClient abstracts the projection storage connection
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Pipeline() redis.Pipeliner
	Close() error
}

// Redis keys of the projection. Fields are instrument names.
const (
	NetQtyKey     = "ledger:net"
	OrderCountKey = "ledger:orders"
	seenPrefix    = "ledger:seen:"
)
