package testutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type MockKafkaReader struct {
	Messages []kafka.Message
	Index    int
	Mu       sync.Mutex
	// Closed simulates a closed connection or end of stream
	Closed bool
}

func (m *MockKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Closed {
		return kafka.Message{}, io.EOF
	}

	if m.Index >= len(m.Messages) {
		// DeadlineExceeded stops the read loop once the journal is drained
		return kafka.Message{}, context.DeadlineExceeded
	}

	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *MockKafkaReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

type MockPipeline struct {
	redis.Pipeliner // Embed interface to satisfy missing methods

	ExecCount    int
	RecordedCmds []string
	FailExec     bool
	Mu           sync.Mutex
}

func (m *MockPipeline) HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, fmt.Sprintf("HINCRBY %s %s %d", key, field, incr))
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ExecCount++
	if m.FailExec {
		return nil, errors.New("pipeline failed")
	}
	return nil, nil
}

func (m *MockPipeline) Cmds() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]string(nil), m.RecordedCmds...)
}

type MockRedisClient struct {
	PipelineSpy *MockPipeline

	Mu      sync.Mutex
	Seen    map[string]bool
	Deleted []string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}, Seen: make(map[string]bool)}
}

func (m *MockRedisClient) Pipeline() redis.Pipeliner {
	return m.PipelineSpy
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Seen[key] {
		return redis.NewBoolResult(false, nil)
	}
	m.Seen[key] = true
	return redis.NewBoolResult(true, nil)
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for _, k := range keys {
		delete(m.Seen, k)
		m.Deleted = append(m.Deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *MockRedisClient) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	return redis.NewMapStringStringResult(map[string]string{}, nil)
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (m *MockRedisClient) Close() error { return nil }
