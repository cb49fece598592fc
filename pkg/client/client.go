package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/pkg/models"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

var ErrClosed = errors.New("client closed")

const writeWait = 5 * time.Second

// Handlers receive decoded server events. Nil handlers are skipped. They run
// on the Run goroutine, one event at a time.
type Handlers struct {
	OnPrice          func(protocol.PriceTick)
	OnOrderConfirmed func(protocol.OrderConfirmation)
	OnOrderUpdate    func(protocol.OrderUpdate)
	OnBalance        func(protocol.BalanceUpdate)
	OnError          func(requestID string, e protocol.ErrorMessage)
}

// Client is a websocket subscriber of the dashboard gateway.
type Client struct {
	conn     *websocket.Conn
	handlers Handlers
	logger   *zap.Logger

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// Dial connects to a gateway websocket endpoint, e.g. ws://localhost:3002/ws.
func Dial(ctx context.Context, url string, handlers Handlers, logger *zap.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, handlers: handlers, logger: logger}, nil
}

// Run reads frames until the connection fails or ctx is cancelled. Frames
// that cannot be decoded are logged and skipped.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.isClosed() {
				return ErrClosed
			}
			return fmt.Errorf("read: %w", err)
		}

		msg, err := protocol.DecodeEvent(raw)
		if err != nil {
			c.logger.Warn("Skipping undecodable frame", zap.Error(err))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.Message) {
	switch p := msg.Payload.(type) {
	case protocol.PriceTick:
		if c.handlers.OnPrice != nil {
			c.handlers.OnPrice(p)
		}
	case protocol.OrderConfirmation:
		if c.handlers.OnOrderConfirmed != nil {
			c.handlers.OnOrderConfirmed(p)
		}
	case protocol.OrderUpdate:
		if c.handlers.OnOrderUpdate != nil {
			c.handlers.OnOrderUpdate(p)
		}
	case protocol.BalanceUpdate:
		if c.handlers.OnBalance != nil {
			c.handlers.OnBalance(p)
		}
	case protocol.ErrorMessage:
		if c.handlers.OnError != nil {
			c.handlers.OnError(msg.ID, p)
		}
	}
}

// PlaceOrder sends a place-order request and returns its request id. The
// outcome arrives later as an order-confirmed broadcast. A failure is also
// reported to this client alone as an error event carrying the request id.
func (c *Client) PlaceOrder(name string, qty int, price decimal.Decimal, mode models.Mode) (string, error) {
	id := uuid.NewString()
	frame, err := protocol.Encode(id, protocol.PlaceOrder{Name: name, Qty: qty, Price: price, Mode: mode})
	if err != nil {
		return "", err
	}

	if c.isClosed() {
		return "", ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return "", fmt.Errorf("send place-order: %w", err)
	}
	return id, nil
}

// Close sends a close frame and releases the connection. Safe to call twice.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}
