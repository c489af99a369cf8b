/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	closes int
}

func (f *fakeChannel) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrChannelClosed
	}
	f.frames = append(f.frames, frame)

	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.closes++

	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func (f *fakeChannel) raw() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]byte, len(f.frames))
	copy(out, f.frames)

	return out
}

func (f *fakeChannel) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frames = nil
}

func (f *fakeChannel) received(t *testing.T) []Frame {
	t.Helper()

	var out []Frame
	for _, b := range f.raw() {
		frame, err := DecodeFrame(b)
		require.NoError(t, err)
		out = append(out, frame)
	}

	return out
}

func (f *fakeChannel) types(t *testing.T) []string {
	t.Helper()

	var out []string
	for _, frame := range f.received(t) {
		out = append(out, frame.Type)
	}

	return out
}

// last returns the most recent frame of the given type.
func (f *fakeChannel) last(t *testing.T, typ string) Frame {
	t.Helper()

	frames := f.received(t)
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == typ {
			return frames[i]
		}
	}

	require.FailNowf(t, "frame not received", "no %q frame among %v", typ, f.types(t))

	return Frame{}
}

func snapshotOf(t *testing.T, f Frame) Snapshot {
	t.Helper()

	var snap Snapshot
	require.NoError(t, json.Unmarshal(f.Payload, &snap))

	return snap
}

func errorOf(t *testing.T, f Frame) string {
	t.Helper()

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))

	return p.Message
}

// sequence hands out the given ids in order, then numbered extras.
func sequence(ids ...string) func() string {
	var n int

	return func() string {
		defer func() { n++ }()
		if n < len(ids) {
			return ids[n]
		}
		return fmt.Sprintf("extra-%d", n)
	}
}

func newTestRelay(ids ...string) *Relay {
	return New(Options{NewID: sequence(ids...)})
}

func connect(r *Relay) *fakeChannel {
	ch := &fakeChannel{}
	r.connect(ch)

	return ch
}

func send(t *testing.T, r *Relay, ch Channel, typ string, payload any) {
	t.Helper()

	data, err := json.Marshal(map[string]any{"type": typ, "payload": payload})
	require.NoError(t, err)

	r.receive(ch, data)
}

func createPayload(code string, maxPlayers int) map[string]any {
	return map[string]any{
		"id":         "room-" + code,
		"name":       "Test",
		"code":       code,
		"isPrivate":  false,
		"maxPlayers": maxPlayers,
	}
}

func joinPayload(code string) map[string]any {
	return map[string]any{"code": code}
}
