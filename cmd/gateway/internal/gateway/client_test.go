package gateway_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/gateway"
	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/hub"
)

// readFrame reads one unmasked server frame.
func readFrame(t *testing.T, conn net.Conn) (ws.Header, []byte) {
	t.Helper()
	header, err := ws.ReadHeader(conn)
	require.NoError(t, err)
	payload := make([]byte, header.Length)
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)
	return header, payload
}

func startClient(t *testing.T) (net.Conn, *hub.Hub) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	h := hub.NewHub(zap.NewNop())
	gateway.NewClient(serverConn, h, zap.NewNop()).Start()
	t.Cleanup(func() { clientConn.Close() })
	require.NoError(t, clientConn.SetDeadline(time.Now().Add(2*time.Second)))
	return clientConn, h
}

func TestClient_AnswersPingWithPong(t *testing.T) {
	conn, _ := startClient(t)

	require.NoError(t, wsutil.WriteClientMessage(conn, ws.OpPing, []byte("hi")))

	header, payload := readFrame(t, conn)
	assert.Equal(t, ws.OpPong, header.OpCode)
	assert.Equal(t, "hi", string(payload))
}

func TestClient_AnswersEveryPingInOrder(t *testing.T) {
	conn, h := startClient(t)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, wsutil.WriteClientMessage(conn, ws.OpPing, []byte("a")))
	require.NoError(t, wsutil.WriteClientMessage(conn, ws.OpPing, []byte("b")))

	var got []string
	for len(got) < 2 {
		header, payload := readFrame(t, conn)
		if header.OpCode == ws.OpPong {
			got = append(got, string(payload))
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}
