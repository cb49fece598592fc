package tests

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket" // Using Gorilla for the test CLIENT
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
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
	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

var creditSecret = []byte("integration-secret")

type testEnv struct {
	server *httptest.Server
	store  *repository.GormStore
	mr     *miniredis.Miniredis
	ticks  *generator.TickGenerator
}

func startServer(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	db, err := repository.OpenDatabase(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	store := repository.NewGormStore(db)
	if _, err := store.Seed(context.Background()); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	mr := miniredis.RunT(t)
	prices := repository.NewRedisPriceStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	wsHub := hub.NewHub(logger)
	instruments := registry.NewRegistry(store, store)
	ticks := generator.NewTickGenerator(logger, instruments, wsHub, prices,
		generator.NewRealRand(), generator.RealClock{}, 50*time.Millisecond)
	wsHub.OnConnect(func() { ticks.Start() })

	intake := orders.NewIntake(store, wsHub, journal.NopJournal{}, logger)
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

		CreditSecret: creditSecret,
	}, []string{"http://localhost:3000"}, logger)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ticks.Stop()
		server.Close()
		wsHub.Shutdown()
		prices.Close()
		store.Close()
	})

	return &testEnv{server: server, store: store, mr: mr, ticks: ticks}
}

func connectWS(t *testing.T, serverURL string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to websocket: %v", err)
	}
	t.Cleanup(func() { wsConn.Close() })
	return wsConn
}

// readUntil skips frames until one of the given kind arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind protocol.EventKind) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed waiting for %s: %v", kind, err)
		}
		msg, err := protocol.DecodeEvent(raw)
		if err != nil {
			t.Fatalf("Undecodable frame %s: %v", raw, err)
		}
		if msg.Payload.Kind() == kind {
			return msg
		}
	}
}

func TestEndToEnd_PriceFeedStartsOnFirstConnect(t *testing.T) {
	env := startServer(t)
	if env.ticks.Running() {
		t.Fatal("Feed should not run before anyone connects")
	}

	wsConn := connectWS(t, env.server.URL)

	msg := readUntil(t, wsConn, protocol.EventPriceUpdate)
	tick := msg.Payload.(protocol.PriceTick)
	if tick.Name == "" {
		t.Error("Expected instrument name on tick")
	}
	low, high := decimal.NewFromInt(1200), decimal.NewFromInt(2200)
	if tick.Price.LessThan(low) || !tick.Price.LessThan(high) {
		t.Errorf("Price %s out of range", tick.Price)
	}
	if !env.ticks.Running() {
		t.Error("Feed should be running after connect")
	}

	// snapshots land in redis
	deadline := time.Now().Add(2 * time.Second)
	for !env.mr.Exists("stock:" + tick.Name) {
		if time.Now().After(deadline) {
			t.Fatalf("Expected snapshot for %s in redis", tick.Name)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestEndToEnd_PlaceOrderReachesEverySubscriber(t *testing.T) {
	env := startServer(t)

	submitter := connectWS(t, env.server.URL)
	watcher := connectWS(t, env.server.URL)

	req := `{"event":"place-order","id":"t1","data":{"name":"TCS","qty":2,"price":3041.7,"mode":"BUY"}}`
	if err := submitter.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, conn := range []*websocket.Conn{submitter, watcher} {
		msg := readUntil(t, conn, protocol.EventOrderConfirmed)
		conf := msg.Payload.(protocol.OrderConfirmation)
		if conf.Status != protocol.StatusSuccess || conf.Order == nil {
			t.Fatalf("Expected success confirmation, got %+v", conf)
		}
		if conf.Order.Name != "TCS" || conf.Order.Qty != 2 || conf.Order.Mode != models.ModeBuy {
			t.Errorf("Unexpected order %+v", conf.Order)
		}
	}

	stored, err := env.store.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("Expected 1 stored order, got %d", len(stored))
	}
}

func TestEndToEnd_InvalidJSON(t *testing.T) {
	env := startServer(t)
	wsConn := connectWS(t, env.server.URL)

	wsConn.WriteMessage(websocket.TextMessage, []byte(`{ "event": "place-or`))

	msg := readUntil(t, wsConn, protocol.EventError)
	if msg.Payload.(protocol.ErrorMessage).Message != "Invalid message" {
		t.Errorf("Unexpected error payload %+v", msg.Payload)
	}

	// connection stays usable
	req := `{"event":"place-order","id":"t2","data":{"name":"INFY","qty":1,"price":1555.45,"mode":"SELL"}}`
	wsConn.WriteMessage(websocket.TextMessage, []byte(req))
	readUntil(t, wsConn, protocol.EventOrderConfirmed)
}

func TestEndToEnd_MaxMessageSize(t *testing.T) {
	env := startServer(t)
	wsConn := connectWS(t, env.server.URL)

	hugeMsg := `{"event":"place-order","data":{"name":"` + strings.Repeat("a", 65*1024) + `"}}`

	err := wsConn.WriteMessage(websocket.TextMessage, []byte(hugeMsg))
	// Depending on timing, write might succeed, but Read should fail (Disconnect)
	if err == nil {
		wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			_, _, err := wsConn.ReadMessage()
			if err == nil {
				continue
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				t.Error("Server should have closed connection for huge message, but it stayed open")
			}
			break
		}
	}
}

func TestEndToEnd_RESTOrderBroadcastsUpdate(t *testing.T) {
	env := startServer(t)
	wsConn := connectWS(t, env.server.URL)

	body := strings.NewReader(`{"name":"WIPRO","qty":5,"price":577.75,"mode":"BUY"}`)
	resp, err := env.server.Client().Post(env.server.URL+"/newOrder", "application/json", body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	msg := readUntil(t, wsConn, protocol.EventOrderUpdate)
	update := msg.Payload.(protocol.OrderUpdate)
	if update.Order.Name != "WIPRO" {
		t.Errorf("Unexpected order update %+v", update)
	}
}

func TestEndToEnd_CreditBroadcastsBalanceUpdate(t *testing.T) {
	env := startServer(t)
	wsConn := connectWS(t, env.server.URL)
	// the first tick means the subscriber is registered
	readUntil(t, wsConn, protocol.EventPriceUpdate)

	url := env.server.URL + "/api/v1/accounts/" + repository.DemoUserID + "/credit"
	body := `{"amount":"2500.50"}`
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accounts.SignatureHeader, accounts.Sign(creditSecret, repository.DemoUserID, []byte(body)))

	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	msg := readUntil(t, wsConn, protocol.EventBalanceUpdate)
	update := msg.Payload.(protocol.BalanceUpdate)
	if update.UserID != repository.DemoUserID {
		t.Errorf("Expected balance for %s, got %s", repository.DemoUserID, update.UserID)
	}
	if update.Balance.StringFixed(2) != "2500.50" {
		t.Errorf("Expected balance 2500.50, got %s", update.Balance)
	}
}

func TestEndToEnd_UnsignedCreditIsRejected(t *testing.T) {
	env := startServer(t)

	url := env.server.URL + "/api/v1/accounts/" + repository.DemoUserID + "/credit"
	resp, err := env.server.Client().Post(url, "application/json", strings.NewReader(`{"amount":"1000000"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", resp.StatusCode)
	}
}
