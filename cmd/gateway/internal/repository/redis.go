package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

const (
	keyPrefix     = "stock:"
	channelPrefix = "prices."
)

// Compile-time check to ensure RedisPriceStore implements PriceStore
var _ PriceStore = (*RedisPriceStore)(nil)

type RedisPriceStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPriceStore(client *redis.Client, ttl time.Duration) *RedisPriceStore {
	return &RedisPriceStore{client: client, ttl: ttl}
}

// SaveTicks stores each tick as the latest snapshot and publishes it on
// prices.<name> in one pipeline round trip.
func (r *RedisPriceStore) SaveTicks(ctx context.Context, ticks []protocol.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, tick := range ticks {
		payload, err := json.Marshal(tick)
		if err != nil {
			return err
		}
		pipe.Set(ctx, keyPrefix+tick.Name, payload, r.ttl)
		pipe.Publish(ctx, channelPrefix+tick.Name, payload)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetSnapshots fetches the latest price for a list of instruments (MGET).
// Instruments without a snapshot are skipped.
func (r *RedisPriceStore) GetSnapshots(ctx context.Context, names []string) ([]protocol.PriceTick, error) {
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = keyPrefix + name
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []protocol.PriceTick
	for _, val := range results {
		payload, ok := val.(string)
		if !ok || payload == "" {
			continue
		}
		var tick protocol.PriceTick
		if err := json.Unmarshal([]byte(payload), &tick); err != nil {
			continue
		}
		snapshots = append(snapshots, tick)
	}
	return snapshots, nil
}

func (r *RedisPriceStore) Close() error {
	return r.client.Close()
}

// NopPriceStore is used when Redis is disabled.
type NopPriceStore struct{}

func (NopPriceStore) SaveTicks(context.Context, []protocol.PriceTick) error { return nil }
func (NopPriceStore) GetSnapshots(context.Context, []string) ([]protocol.PriceTick, error) {
	return nil, nil
}
func (NopPriceStore) Close() error { return nil }
