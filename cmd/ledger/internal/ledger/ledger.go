package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/pkg/models"
)

// Ledger projects the order journal into per-instrument net quantity and
// order counts held in Redis.
type Ledger struct {
	logger     *zap.Logger
	rdb        RedisClient
	reader     KafkaReader
	numWorkers int
	seenTTL    time.Duration
}

func NewLedger(logger *zap.Logger, rdb RedisClient, reader KafkaReader, numWorkers int, seenTTL time.Duration) *Ledger {
	return &Ledger{
		logger:     logger,
		rdb:        rdb,
		reader:     reader,
		numWorkers: numWorkers,
		seenTTL:    seenTTL,
	}
}

func (l *Ledger) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, l.numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < l.numWorkers; i++ {
		workerChans[i] = make(chan []byte, 100)
		wg.Add(1)
		go l.worker(i, workerChans[i], &wg)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		l.logger.Info("Ledger Started", zap.Int("workers", l.numWorkers))
		for {
			m, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				l.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// Same instrument always goes to the same worker, so its orders
			// are applied in journal order.
			workerID := getWorkerID(m.Key, l.numWorkers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	l.logger.Info("Shutdown signal received, stopping ledger...")
	<-readerDone

	for _, ch := range workerChans {
		close(ch)
	}
	l.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

func (l *Ledger) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	// Background context so a shutdown does not cut a Redis write in half
	ctx := context.Background()

	for payload := range msgs {
		var order models.Order
		if err := json.Unmarshal(payload, &order); err != nil {
			l.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}

		applied, err := l.Apply(ctx, order)
		if err != nil {
			l.logger.Error("Ledger Apply Error", zap.Error(err), zap.String("order_id", order.ID))
			continue
		}
		if !applied {
			l.logger.Debug("Skipping duplicate order", zap.String("order_id", order.ID))
			continue
		}
		l.logger.Debug("Processed", zap.String("order_id", order.ID), zap.String("name", order.Name), zap.Int("worker_id", id))
	}
}

// Apply adds one order to the projection. An order id is applied at most once
// within the seen TTL; replays return false.
func (l *Ledger) Apply(ctx context.Context, order models.Order) (bool, error) {
	if order.ID == "" || order.Name == "" {
		return false, fmt.Errorf("order is missing id or name")
	}

	var delta int64
	switch order.Mode {
	case models.ModeBuy:
		delta = int64(order.Qty)
	case models.ModeSell:
		delta = -int64(order.Qty)
	default:
		return false, fmt.Errorf("order %s has unknown mode %q", order.ID, order.Mode)
	}

	seenKey := seenPrefix + order.ID
	fresh, err := l.rdb.SetNX(ctx, seenKey, 1, l.seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark order %s: %w", order.ID, err)
	}
	if !fresh {
		return false, nil
	}

	pipe := l.rdb.Pipeline()
	pipe.HIncrBy(ctx, NetQtyKey, order.Name, delta)
	pipe.HIncrBy(ctx, OrderCountKey, order.Name, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		// forget the id so a redelivery can apply it
		l.rdb.Del(ctx, seenKey)
		return false, fmt.Errorf("apply order %s: %w", order.ID, err)
	}
	return true, nil
}

// NetQuantities reads the projected net quantity per instrument.
func NetQuantities(ctx context.Context, rdb RedisClient) (map[string]int64, error) {
	raw, err := rdb.HGetAll(ctx, NetQtyKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", NetQtyKey, err)
	}

	out := make(map[string]int64, len(raw))
	for name, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse net qty of %s: %w", name, err)
		}
		out[name] = n
	}
	return out, nil
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(numWorkers))
}
