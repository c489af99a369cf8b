/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverConn returns the server side of a live WebSocket and the client
// connected to it.
func serverConn(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	var upgrader websocket.Upgrader

	conns := make(chan *websocket.Conn, 1)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
		<-release
	}))

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		close(release)
		srv.Close()
	})

	select {
	case conn := <-conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn, client
	case <-time.After(5 * time.Second):
		require.FailNow(t, "upgrade never completed")
		return nil, nil
	}
}

func TestFullSendBufferDropsClient(t *testing.T) {
	conn, client := serverConn(t)

	ch := newWSChannel(conn)

	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, ch.Send([]byte(`{"type":"room_update"}`)))
	}

	assert.ErrorIs(t, ch.Send([]byte(`{"type":"room_update"}`)), errSendBufferFull)
	assert.ErrorIs(t, ch.Send([]byte(`{"type":"room_update"}`)), ErrChannelClosed)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestSlowClientIsDisconnected(t *testing.T) {
	conn, _ := serverConn(t)

	r := New(Options{NewID: sequence("A", "B")})
	slow := newWSChannel(conn)
	a := connect(r)
	r.connect(slow)

	send(t, r, a, TypeRoomCreate, createPayload("AB12CD", 4))
	send(t, r, slow, TypeRoomJoin, joinPayload("AB12CD"))

	// Nothing drains slow's queue, so forwarded frames eventually overflow it.
	for i := 0; i < sendBuffer+1; i++ {
		send(t, r, a, "player_move", map[string]int{"x": 1})
	}

	assert.ErrorIs(t, slow.Send([]byte(`{}`)), ErrChannelClosed)

	// The read loop notices the closed connection and reports the disconnect.
	r.disconnect(slow)

	assert.Equal(t, []string{"A"}, r.rooms["AB12CD"].Players)
	assert.Equal(t, []string{"A"}, snapshotOf(t, a.last(t, TypeRoomUpdate)).Players)
}

func TestServeWebSocketDisconnectsOnClose(t *testing.T) {
	r := New(Options{PingTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, client := serverConn(t)

	served := make(chan struct{})
	go func() {
		defer close(served)
		r.ServeWebSocket(conn)
	}()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"room_create","payload":{"id":"r1","name":"Test","code":"AB12CD","maxPlayers":4}}`)))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), TypeRoomCreated)

	require.NoError(t, client.Close())

	select {
	case <-served:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "ServeWebSocket did not return after the client went away")
	}

	found, err := r.Has(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.False(t, found)
}
