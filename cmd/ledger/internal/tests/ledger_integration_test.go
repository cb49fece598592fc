package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/ledger/internal/ledger"
	"github.com/priya3054/ZerodhaClone/cmd/ledger/internal/testutils"
	"github.com/priya3054/ZerodhaClone/pkg/models"
)

func TestLedger_EndToEnd_Flow(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var msgs []kafka.Message
	for _, o := range []models.Order{
		{ID: "o-1", Name: "RELIANCE", Qty: 4, Price: decimal.RequireFromString("2112.40"), Mode: models.ModeBuy},
		{ID: "o-2", Name: "RELIANCE", Qty: 1, Price: decimal.RequireFromString("2120.00"), Mode: models.ModeSell},
		{ID: "o-2", Name: "RELIANCE", Qty: 1, Price: decimal.RequireFromString("2120.00"), Mode: models.ModeSell},
	} {
		val, _ := json.Marshal(o)
		msgs = append(msgs, kafka.Message{Key: []byte(o.Name), Value: val})
	}
	// Use Mock Reader because spinning up real Kafka is heavy/complex for unit tests
	mockReader := &testutils.MockKafkaReader{Messages: msgs}

	l := ledger.NewLedger(zap.NewNop(), rdb, mockReader, 1, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	// Poll until both orders are applied (the ledger is async)
	success := false
	for i := 0; i < 20; i++ {
		if mr.HGet(ledger.OrderCountKey, "RELIANCE") == "2" {
			success = true
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !success {
		t.Fatal("Ledger did not apply both orders to Redis")
	}

	net, err := ledger.NetQuantities(context.Background(), rdb)
	if err != nil {
		t.Fatalf("NetQuantities failed: %v", err)
	}
	if net["RELIANCE"] != 3 {
		t.Errorf("Expected net qty 3, got %d", net["RELIANCE"])
	}
	if !mr.Exists("ledger:seen:o-2") {
		t.Error("Expected applied order id to be remembered")
	}

	cancel()
	<-done
}
