package gateway

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scanlink/scanlink-core/internal/infrastructure/config"
	"github.com/scanlink/scanlink-core/internal/protocol"
)

// scannerConn is one scanner app WebSocket connection.
//
// Outbound frames go through the buffered send channel and are written by
// writePump; readPump decodes inbound frames and hands them to the
// dispatcher. The gateway closes send exactly once, after which Send
// reports ErrConnClosed.
type scannerConn struct {
	gw     *Gateway
	conn   *websocket.Conn
	send   chan []byte
	remote string

	state   atomic.Int32
	closing atomic.Bool

	closeOnce sync.Once
}

func newScannerConn(gw *Gateway, conn *websocket.Conn, bufSize int) *scannerConn {
	return &scannerConn{
		gw:     gw,
		conn:   conn,
		send:   make(chan []byte, bufSize),
		remote: conn.RemoteAddr().String(),
	}
}

// Send queues data for delivery. It implements session.Conn.
func (c *scannerConn) Send(data []byte) (err error) {
	defer func() {
		if recover() != nil { // send on closed channel
			err = ErrConnClosed
		}
	}()

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// State implements Peer.
func (c *scannerConn) State() ConnState {
	return ConnState(c.state.Load())
}

// MarkPaired implements Peer.
func (c *scannerConn) MarkPaired() {
	c.state.Store(int32(StatePaired))
}

// shutdown closes the socket from the server side. The read loop then
// reports a close rather than an error.
func (c *scannerConn) shutdown() {
	c.closing.Store(true)
	//nolint:errcheck // Best-effort close frame before dropping the socket
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second),
	)
	c.conn.Close()
}

// closeSend closes the outbound channel once.
func (c *scannerConn) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump reads frames until the socket fails, then runs lifecycle cleanup.
func (c *scannerConn) readPump(cfg config.ServerConfig) {
	var readErr error
	defer func() {
		if c.closing.Load() || isCleanClose(readErr) {
			c.gw.lifecycle.OnClose(c)
		} else {
			c.gw.lifecycle.OnError(c, readErr)
		}
		c.gw.untrack(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pongWait := cfg.PongWait()
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			readErr = err
			if isCleanClose(err) || c.closing.Load() {
				c.gw.logger.Debug("scanner socket closed", "remote", c.remote, "error", err)
			} else {
				c.gw.logger.Warn("scanner read error", "remote", c.remote, "error", err)
			}
			return
		}
		// Any frame counts as liveness, some app builds never answer pings.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleFrame(message)
	}
}

// writePump writes queued frames and keepalive pings.
func (c *scannerConn) writePump(cfg config.ServerConfig) {
	ticker := time.NewTicker(cfg.PingPeriod())
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one frame, relays it to the host and dispatches it.
// Malformed frames are dropped; the connection stays open.
func (c *scannerConn) handleFrame(data []byte) {
	req, err := protocol.Decode(data)
	if err != nil {
		c.gw.logger.Warn("dropping malformed frame", "remote", c.remote, "error", err)
		return
	}

	c.gw.dispatcher.Dispatch(c, req)
	c.relay(req, data)
}

// relay forwards scanner frames to the host under their action name.
// Pings and client kicks are not forwarded.
func (c *scannerConn) relay(req protocol.Request, data []byte) {
	switch req.(type) {
	case protocol.PingRequest, protocol.KickRequest:
		return
	}
	if err := relayToHost(c.gw.relay, req.Action(), json.RawMessage(data)); err != nil {
		c.gw.logger.Debug("frame relay failed", "action", req.Action(), "error", err)
	}
}

// isCleanClose reports whether err is an orderly close from the peer.
func isCleanClose(err error) bool {
	if err == nil {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
