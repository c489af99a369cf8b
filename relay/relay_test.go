/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRelay(t *testing.T, r *Relay) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	stop = func() {
		cancel()
		<-done
	}
	t.Cleanup(stop)

	return stop
}

func frame(typ string, payload string) []byte {
	return []byte(`{"type":"` + typ + `","payload":` + payload + `}`)
}

func TestRoomsListsPublicRoomsByCode(t *testing.T) {
	r := New(Options{NewID: sequence("A", "B", "C")})
	runRelay(t, r)

	a, b, c := &fakeChannel{}, &fakeChannel{}, &fakeChannel{}
	for _, ch := range []*fakeChannel{a, b, c} {
		r.Connect(ch)
	}

	r.Receive(a, frame(TypeRoomCreate, `{"id":"1","name":"Zeta","code":"ZZZZZZ","maxPlayers":4}`))
	r.Receive(b, frame(TypeRoomCreate, `{"id":"2","name":"Alpha","code":"AAAAAA","maxPlayers":4}`))
	r.Receive(c, frame(TypeRoomCreate, `{"id":"3","name":"Hidden","code":"HHHHHH","maxPlayers":4,"isPrivate":true,"password":"x"}`))

	rooms, err := r.Rooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "AAAAAA", rooms[0].Code)
	assert.Equal(t, "ZZZZZZ", rooms[1].Code)
	assert.Equal(t, []string{"A"}, rooms[1].Players)

	snap, found, err := r.Room(context.Background(), "AAAAAA")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Alpha", snap.Name)

	_, found, err = r.Room(context.Background(), "HHHHHH")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = r.Room(context.Background(), "NOPE00")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConcurrentCreatesWithSameCode(t *testing.T) {
	r := New(Options{})
	runRelay(t, r)

	const n = 8

	chans := make([]*fakeChannel, n)
	for i := range chans {
		chans[i] = &fakeChannel{}
		r.Connect(chans[i])
	}

	start := make(chan struct{})
	done := make(chan struct{})

	for _, ch := range chans {
		ch := ch
		go func() {
			<-start
			r.Receive(ch, frame(TypeRoomCreate, `{"id":"1","name":"Race","code":"AB12CD","maxPlayers":4}`))
			done <- struct{}{}
		}()
	}

	close(start)
	for range chans {
		<-done
	}

	// Flush the loop before inspecting the channels.
	_, err := r.Rooms(context.Background())
	require.NoError(t, err)

	created, conflicts := 0, 0
	for _, ch := range chans {
		for _, f := range ch.received(t) {
			switch f.Type {
			case TypeRoomCreated:
				created++
			case TypeError:
				assert.Contains(t, errorOf(t, f), "already in use")
				conflicts++
			}
		}
	}

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	r := New(Options{})
	runRelay(t, r)

	host := &fakeChannel{}
	r.Connect(host)
	r.Receive(host, frame(TypeRoomCreate, `{"id":"1","name":"Race","code":"AB12CD","maxPlayers":3}`))

	const n = 10

	chans := make([]*fakeChannel, n)
	done := make(chan struct{})

	for i := range chans {
		chans[i] = &fakeChannel{}
		r.Connect(chans[i])
	}

	for _, ch := range chans {
		ch := ch
		go func() {
			r.Receive(ch, frame(TypeRoomJoin, `{"code":"AB12CD"}`))
			done <- struct{}{}
		}()
	}
	for range chans {
		<-done
	}

	rooms, err := r.Rooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Len(t, rooms[0].Players, 3)

	joined, full := 0, 0
	for _, ch := range chans {
		for _, f := range ch.received(t) {
			switch f.Type {
			case TypeRoomJoined:
				joined++
			case TypeError:
				full++
			}
		}
	}

	assert.Equal(t, 2, joined)
	assert.Equal(t, n-2, full)
}

func TestShutdownClosesEveryChannel(t *testing.T) {
	r := New(Options{PingTimeout: time.Minute})
	stop := runRelay(t, r)

	a, b := &fakeChannel{}, &fakeChannel{}
	r.Connect(a)
	r.Connect(b)
	r.Receive(a, frame(TypeRoomCreate, `{"id":"1","name":"Bye","code":"AB12CD","maxPlayers":4}`))

	stop()

	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())

	_, err := r.Rooms(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	// Posting after shutdown must not block.
	r.Connect(&fakeChannel{})
	r.Receive(a, []byte(`{"type":"ping"}`))
	r.Disconnect(a)
}

func TestQueryHonoursContext(t *testing.T) {
	r := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Rooms(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type panicChannel struct{}

func (panicChannel) Send([]byte) error { panic("boom") }
func (panicChannel) Close() error      { return nil }

func TestPanicInOneHandlerDoesNotStopTheRelay(t *testing.T) {
	r := New(Options{})
	runRelay(t, r)

	bad, good := panicChannel{}, &fakeChannel{}
	r.Connect(bad)
	r.Connect(good)

	r.Receive(bad, []byte(`{"type":"ping"}`))
	r.Receive(good, []byte(`{"type":"ping"}`))

	_, err := r.Rooms(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{TypePong}, good.types(t))
}
