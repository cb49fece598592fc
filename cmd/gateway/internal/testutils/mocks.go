package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/generator"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/journal"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/repository"
	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.Message // decoded frames, in arrival order
	RawBytes []string
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendBytes(b []byte) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Closed {
		return false
	}
	m.RawBytes = append(m.RawBytes, string(b))
	if msg, err := protocol.DecodeEvent(b); err == nil {
		m.Messages = append(m.Messages, msg)
	}
	return true
}

// Received returns a copy of the decoded frames.
func (m *MockClient) Received() []protocol.Message {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]protocol.Message(nil), m.Messages...)
}

// OfKind returns the payloads of one event kind.
func (m *MockClient) OfKind(kind protocol.EventKind) []protocol.Message {
	var out []protocol.Message
	for _, msg := range m.Received() {
		if msg.Payload.Kind() == kind {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockClient) LastMsgKind() protocol.EventKind {
	msgs := m.Received()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Payload.Kind()
}

// MockNameStore serves holdings and positions names.
type MockNameStore struct {
	HoldingNames  []string
	PositionNames []string
	Err           error
	Calls         int
	Mu            sync.Mutex
}

var (
	_ repository.HoldingsStore  = (*MockNameStore)(nil)
	_ repository.PositionsStore = (*MockNameStore)(nil)
)

func (m *MockNameStore) DistinctHoldingNames(ctx context.Context) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.HoldingNames...), nil
}

func (m *MockNameStore) DistinctPositionNames(ctx context.Context) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.PositionNames...), nil
}

func (m *MockNameStore) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	var out []models.Holding
	for _, n := range m.HoldingNames {
		out = append(out, models.Holding{Name: n})
	}
	return out, m.Err
}

func (m *MockNameStore) ListPositions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	for _, n := range m.PositionNames {
		out = append(out, models.Position{Name: n})
	}
	return out, m.Err
}

// MockOrdersStore simulates the orders collection
type MockOrdersStore struct {
	Orders     []models.Order
	ShouldFail bool
	Mu         sync.Mutex
}

var _ repository.OrdersStore = (*MockOrdersStore)(nil)

func (m *MockOrdersStore) InsertOrder(ctx context.Context, order *models.Order) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("validation failed: qty required")
	}
	m.Orders = append(m.Orders, *order)
	return nil
}

func (m *MockOrdersStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]models.Order(nil), m.Orders...), nil
}

// MockAccountStore keeps balances in memory
type MockAccountStore struct {
	Balances map[string]decimal.Decimal
	Mu       sync.Mutex
}

var _ repository.AccountStore = (*MockAccountStore)(nil)

func (m *MockAccountStore) Credit(ctx context.Context, userID string, amount decimal.Decimal) (*models.User, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	bal, ok := m.Balances[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	bal = bal.Add(amount)
	m.Balances[userID] = bal
	return &models.User{ID: userID, Balance: bal}, nil
}

// MockPublisher records published payloads
type MockPublisher struct {
	Payloads []protocol.Payload
	Mu       sync.Mutex
}

func (m *MockPublisher) Publish(p protocol.Payload) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Payloads = append(m.Payloads, p)
}

func (m *MockPublisher) Ticks() []protocol.PriceTick {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []protocol.PriceTick
	for _, p := range m.Payloads {
		if t, ok := p.(protocol.PriceTick); ok {
			out = append(out, t)
		}
	}
	return out
}

// MockSink records saved tick batches
type MockSink struct {
	Batches [][]protocol.PriceTick
	Err     error
	Mu      sync.Mutex
}

func (m *MockSink) SaveTicks(ctx context.Context, ticks []protocol.PriceTick) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Batches = append(m.Batches, ticks)
	return m.Err
}

// ManualTicker fires only when the test sends on Ch.
type ManualTicker struct {
	Ch      chan time.Time
	Stopped bool
	Mu      sync.Mutex
}

func (t *ManualTicker) C() <-chan time.Time { return t.Ch }
func (t *ManualTicker) Stop() {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.Stopped = true
}

// MockClock hands out a single ManualTicker and counts how often one was asked for.
type MockClock struct {
	CurrentTime    time.Time
	Ticker         *ManualTicker
	TickersCreated int
	Mu             sync.Mutex
}

func NewMockClock() *MockClock {
	return &MockClock{Ticker: &ManualTicker{Ch: make(chan time.Time)}}
}

func (m *MockClock) Now() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) NewTicker(d time.Duration) generator.Ticker {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.TickersCreated++
	return m.Ticker
}

func (m *MockClock) Created() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.TickersCreated
}

type MockRand struct {
	ValInt int
}

func (m *MockRand) Intn(n int) int { return m.ValInt }

// MockJournal records appended orders
type MockJournal struct {
	Orders     []models.Order
	ShouldFail bool
	Mu         sync.Mutex
}

var _ journal.Journal = (*MockJournal)(nil)

func (m *MockJournal) Append(ctx context.Context, order models.Order) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Orders = append(m.Orders, order)
	return nil
}

func (m *MockJournal) Close() error { return nil }

// MockKafkaWriter captures writes for the kafka journal
type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

// MockKafkaConn models one broker. Topics in Existing are already there
// (hidden from the first HiddenReads partition reads); created topics become
// readable unless NeverReady is set.
type MockKafkaConn struct {
	CreatedTopics []kafka.TopicConfig
	Existing      map[string]int
	HiddenReads   int
	CreateErr     error
	NeverReady    bool
	Closed        int
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { m.Closed++; return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.CreatedTopics = append(m.CreatedTopics, topics...)
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.HiddenReads > 0 {
		m.HiddenReads--
		return nil, kafka.UnknownTopicOrPartition
	}
	for _, topic := range topics {
		if n, ok := m.Existing[topic]; ok {
			return make([]kafka.Partition, n), nil
		}
		for _, c := range m.CreatedTopics {
			if c.Topic == topic && !m.NeverReady {
				return make([]kafka.Partition, c.NumPartitions), nil
			}
		}
	}
	return nil, kafka.UnknownTopicOrPartition
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Err     error
	Dialed  []string
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (journal.KafkaConn, error) {
	m.Dialed = append(m.Dialed, address)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}

// NoSleep satisfies journal.Sleeper without waiting.
type NoSleep struct{}

func (NoSleep) Sleep(time.Duration) {}
