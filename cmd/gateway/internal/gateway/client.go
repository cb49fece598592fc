package gateway

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/hub"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

const (
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
	pongBuffer     = 4
)

// ClientAdapter binds one websocket connection to the hub.
type ClientAdapter struct {
	id     string
	conn   net.Conn
	hub    *hub.Hub
	send   chan []byte
	pongs  chan []byte
	logger *zap.Logger

	mu     sync.Mutex
	closed bool

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger) *ClientAdapter {
	id := uuid.NewString()
	return &ClientAdapter{
		id:         id,
		conn:       conn,
		hub:        h,
		send:       make(chan []byte, sendBuffer),
		pongs:      make(chan []byte, pongBuffer),
		logger:     logger.With(zap.String("client_id", id), zap.String("remote", conn.RemoteAddr().String())),
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

// Start registers the client with the hub and spawns its pumps.
func (c *ClientAdapter) Start() {
	go c.writePump()
	c.hub.Register(c)
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.id }

// Close stops the writer; the writer closes the connection.
func (c *ClientAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// SendBytes never blocks: frames are dropped when the client is gone or its
// queue is full.
func (c *ClientAdapter) SendBytes(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		c.logger.Warn("Send buffer full, dropping frame")
		return false
	}
}

// queuePong hands a ping payload to the writer. Pongs beyond the buffer are
// dropped; the peer only needs one answer.
func (c *ClientAdapter) queuePong(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.pongs <- payload:
	default:
	}
}

func (c *ClientAdapter) sendError(id, msg string) {
	b, err := protocol.Encode(id, protocol.ErrorMessage{Message: msg})
	if err == nil {
		c.SendBytes(b)
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			break
		}

		if header.Length > int64(maxMessageSize) {
			c.logger.Warn("Msg too big", zap.Int64("size", header.Length))
			break
		}

		if !header.Fin {
			c.logger.Warn("Client sent fragmented message (not supported)")
			break
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			break
		}

		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPong:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			continue
		case ws.OpPing:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			c.queuePong(payload)
			continue
		case ws.OpText:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			msg, err := protocol.DecodeRequest(payload)
			if err != nil {
				c.logger.Debug("Rejected client frame", zap.Error(err))
				c.sendError(msg.ID, "Invalid message")
				continue
			}
			c.hub.HandleCommand(context.Background(), c, msg)
		}
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.conn.Write(ws.CompiledClose)
				return
			}
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				c.logger.Debug("Write failed", zap.Error(err))
				return
			}

		case payload := <-c.pongs:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPong, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
