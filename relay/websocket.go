/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
)

var errSendBufferFull = errors.New("send buffer full")

// wsChannel adapts a gorilla connection to Channel. Frames are queued and
// written by writePump; Close terminates the connection immediately.
type wsChannel struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// Send queues a frame. A client too slow to drain its queue is dropped: the
// connection is closed and its read loop runs the disconnect path.
func (c *wsChannel) Send(frame []byte) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}

	select {
	case c.send <- frame:
		c.mu.Unlock()
		return nil
	default:
	}

	c.mu.Unlock()

	_ = c.Close()

	return errSendBufferFull
}

func (c *wsChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	return c.conn.Close()
}

func (c *wsChannel) writePump() {
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			_ = c.Close()

			return
		}
	}
}

// ServeWebSocket connects an upgraded WebSocket to the relay and blocks
// until the connection is closed, by the peer or by the liveness timer.
func (r *Relay) ServeWebSocket(conn *websocket.Conn) {
	c := newWSChannel(conn)

	r.Connect(c)

	select {
	case <-r.quit:
		_ = c.Close()

		return
	default:
	}

	defer func() {
		_ = c.Close()
		r.Disconnect(c)
	}()

	go c.writePump()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		r.Receive(c, data)
	}
}
