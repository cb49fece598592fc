package journal_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/journal"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/metrics"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/testutils"
	"github.com/priya3054/ZerodhaClone/pkg/models"
)

func TestKafkaJournal_Append(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	j := journal.NewKafkaJournal(writer, zap.NewNop())

	order := models.Order{
		ID:        "o-1",
		Name:      "TCS",
		Qty:       3,
		Price:     decimal.RequireFromString("100.5"),
		Mode:      models.ModeBuy,
		CreatedAt: time.Unix(0, 0),
	}
	if err := j.Append(context.Background(), order); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	writer.Mu.Lock()
	defer writer.Mu.Unlock()

	if len(writer.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(writer.Messages))
	}
	msg := writer.Messages[0]
	if string(msg.Key) != "TCS" {
		t.Errorf("Expected key TCS, got %s", msg.Key)
	}

	var decoded models.Order
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("Journaled invalid JSON: %v", err)
	}
	if decoded.ID != "o-1" || decoded.Qty != 3 || !decoded.Price.Equal(order.Price) {
		t.Errorf("Unexpected journaled order %+v", decoded)
	}
}

func TestKafkaJournal_WriteError(t *testing.T) {
	writer := &testutils.MockKafkaWriter{ShouldFail: true}
	j := journal.NewKafkaJournal(writer, zap.NewNop())

	if err := j.Append(context.Background(), models.Order{ID: "o-2", Name: "INFY"}); err == nil {
		t.Error("Expected error when writer fails")
	}
}

func TestReportFailedBatch(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report := journal.ReportFailedBatch(zap.New(core))
	before := testutil.ToFloat64(metrics.JournalFailures)

	report([]kafka.Message{{Key: []byte("TCS")}}, nil)
	if logs.Len() != 0 {
		t.Fatalf("Successful batch must not be logged, got %d entries", logs.Len())
	}

	batch := []kafka.Message{{Key: []byte("TCS")}, {Key: []byte("INFY")}}
	report(batch, kafka.LeaderNotAvailable)

	entries := logs.FilterMessage("Failed to journal order batch").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one error entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["messages"] != int64(2) {
		t.Errorf("Expected messages=2, got %v", fields["messages"])
	}
	if got := testutil.ToFloat64(metrics.JournalFailures) - before; got != 2 {
		t.Errorf("Expected failure counter to grow by 2, got %v", got)
	}
}

func TestNewKafkaWriter_ReportsCompletion(t *testing.T) {
	w := journal.NewKafkaWriter([]string{"broker:9092"}, "orders", zap.NewNop())
	defer w.Close()

	if !w.Async {
		t.Fatal("Expected async writer")
	}
	if w.Completion == nil {
		t.Fatal("Async writer must report failed batches")
	}
}

var ordersTopic = journal.TopicSpec{Name: "orders", Partitions: 6, ReplicationFactor: 3}

func TestTopicCreator_CreatesConfiguredTopic(t *testing.T) {
	mockDialer := &testutils.MockKafkaDialer{}

	tc := journal.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep{})
	if err := tc.Ensure(context.Background(), []string{"broker:9092"}, ordersTopic); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	if mockDialer.ConnSpy == nil {
		t.Fatal("Dialer was never called")
	}
	created := mockDialer.ConnSpy.CreatedTopics
	if len(created) != 1 {
		t.Fatalf("Expected one topic created, got %d", len(created))
	}
	if created[0].Topic != "orders" || created[0].NumPartitions != 6 || created[0].ReplicationFactor != 3 {
		t.Errorf("Unexpected topic config %+v", created[0])
	}
}

func TestTopicCreator_ExistingTopicIsLeftAlone(t *testing.T) {
	mockDialer := &testutils.MockKafkaDialer{ConnSpy: &testutils.MockKafkaConn{Existing: map[string]int{"orders": 6}}}

	tc := journal.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep{})
	if err := tc.Ensure(context.Background(), []string{"broker:9092"}, ordersTopic); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if len(mockDialer.ConnSpy.CreatedTopics) != 0 {
		t.Error("Existing topic must not be recreated")
	}
}

func TestTopicCreator_Errors(t *testing.T) {
	t.Run("no broker reachable", func(t *testing.T) {
		mockDialer := &testutils.MockKafkaDialer{Err: errors.New("refused")}
		tc := journal.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep{})

		if err := tc.Ensure(context.Background(), []string{"b1:9092", "b2:9092"}, ordersTopic); err == nil {
			t.Error("Expected dial error")
		}
		if len(mockDialer.Dialed) != 2 {
			t.Errorf("Expected every broker to be tried, got %v", mockDialer.Dialed)
		}
	})

	t.Run("create rejected", func(t *testing.T) {
		mockDialer := &testutils.MockKafkaDialer{ConnSpy: &testutils.MockKafkaConn{CreateErr: kafka.InvalidReplicationFactor}}
		tc := journal.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep{})

		err := tc.Ensure(context.Background(), []string{"broker:9092"}, ordersTopic)
		if !errors.Is(err, kafka.InvalidReplicationFactor) {
			t.Errorf("Expected InvalidReplicationFactor, got %v", err)
		}
	})

	t.Run("already exists is fine", func(t *testing.T) {
		// another creator made it between our check and our create
		conn := &testutils.MockKafkaConn{
			CreateErr:   kafka.TopicAlreadyExists,
			Existing:    map[string]int{"orders": 6},
			HiddenReads: 1,
		}
		mockDialer := &testutils.MockKafkaDialer{ConnSpy: conn}
		tc := journal.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep{})

		if err := tc.Ensure(context.Background(), []string{"broker:9092"}, ordersTopic); err != nil {
			t.Errorf("TopicAlreadyExists must not fail Ensure, got %v", err)
		}
	})

	t.Run("never ready", func(t *testing.T) {
		mockDialer := &testutils.MockKafkaDialer{ConnSpy: &testutils.MockKafkaConn{NeverReady: true}}
		tc := journal.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep{})

		err := tc.Ensure(context.Background(), []string{"broker:9092"}, ordersTopic)
		if !errors.Is(err, journal.ErrTopicNotReady) {
			t.Errorf("Expected ErrTopicNotReady, got %v", err)
		}
	})
}
