/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package lobby is a client for the room relay. It turns lobby actions into
// relay frames and keeps a local copy of the room the session is in.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Seednode/hideseek/relay"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultMaxPlayers      = 8
	DefaultResponseTimeout = 5 * time.Second
	DefaultPingInterval    = 10 * time.Second

	writeWait = 5 * time.Second
)

var (
	// ErrNoResponse means the relay did not answer in time. The relay drops
	// malformed frames silently, so this is how such requests fail.
	ErrNoResponse = errors.New("no response from relay")
	ErrClosed     = errors.New("session closed")
)

// Error is a request the relay rejected.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type Options struct {
	Dialer          *websocket.Dialer
	ResponseTimeout time.Duration
	// PingInterval below zero disables the heartbeat.
	PingInterval time.Duration
	MaxPlayers   int
}

// Session is one player's connection to the relay.
//
// The relay forwards frames it does not handle verbatim, so a room member can
// send frames shaped like relay replies. A Session only accepts replies while
// a request is in flight and only applies updates for the room it is in.
// Within those bounds a peer can still forge them.
type Session struct {
	conn *websocket.Conn
	opts Options

	writeMu sync.Mutex
	reqMu   sync.Mutex
	waiting atomic.Bool

	mu      sync.Mutex
	current *relay.Snapshot

	replies  chan relay.Frame
	updates  chan relay.Snapshot
	messages chan relay.Frame

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the relay WebSocket at url.
func Dial(ctx context.Context, url string, opts Options) (*Session, error) {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultResponseTimeout
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}

	conn, _, err := opts.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	s := &Session{
		conn:     conn,
		opts:     opts,
		replies:  make(chan relay.Frame, 1),
		updates:  make(chan relay.Snapshot, 16),
		messages: make(chan relay.Frame, 64),
		done:     make(chan struct{}),
	}

	go s.readLoop()

	if opts.PingInterval > 0 {
		go s.pingLoop()
	}

	return s, nil
}

// CreateRoom opens a room with a fresh id and code and makes this session its host.
func (s *Session) CreateRoom(ctx context.Context, name string, isPrivate bool, password string) (relay.Snapshot, error) {
	code, err := NewRoomCode()
	if err != nil {
		return relay.Snapshot{}, err
	}

	maxPlayers := s.opts.MaxPlayers

	f, err := s.request(ctx, relay.TypeRoomCreate, relay.CreateRoomRequest{
		ID:         uuid.NewString(),
		Name:       name,
		Code:       code,
		IsPrivate:  isPrivate,
		MaxPlayers: &maxPlayers,
		Password:   password,
	}, relay.TypeRoomCreated)
	if err != nil {
		return relay.Snapshot{}, err
	}

	return s.adopt(f)
}

func (s *Session) JoinRoom(ctx context.Context, code, password string) (relay.Snapshot, error) {
	f, err := s.request(ctx, relay.TypeRoomJoin, relay.JoinRoomRequest{
		Code:     code,
		Password: password,
	}, relay.TypeRoomJoined)
	if err != nil {
		return relay.Snapshot{}, err
	}

	return s.adopt(f)
}

func (s *Session) LeaveRoom(ctx context.Context) error {
	_, err := s.request(ctx, relay.TypeRoomLeave, nil, relay.TypeRoomLeft)

	return err
}

// CurrentRoom returns the latest snapshot of the room this session is in.
func (s *Session) CurrentRoom() (relay.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return relay.Snapshot{}, false
	}

	return *s.current, true
}

// Updates delivers every room_update snapshot. Updates are dropped if the
// channel is not drained.
func (s *Session) Updates() <-chan relay.Snapshot {
	return s.updates
}

// Messages delivers frames relayed from other members of the room.
func (s *Session) Messages() <-chan relay.Frame {
	return s.messages
}

// Send relays a game frame to the other members of the room.
func (s *Session) Send(typ string, payload any) error {
	return s.write(typ, payload)
}

// Done is closed once the connection is gone.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() error {
	s.shutdown()

	return s.conn.Close()
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// adopt decodes the snapshot of a room_created or room_joined reply. The read
// loop has already made it the current room.
func (s *Session) adopt(f relay.Frame) (relay.Snapshot, error) {
	var snap relay.Snapshot
	if err := json.Unmarshal(f.Payload, &snap); err != nil {
		return relay.Snapshot{}, err
	}

	return snap, nil
}

func (s *Session) setCurrent(snap *relay.Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

// request sends one frame and waits for the reply of the accepted type or an
// error frame. The relay does not tag replies, so requests run one at a time.
func (s *Session) request(ctx context.Context, typ string, payload any, accept ...string) (relay.Frame, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	// Discard a late reply to an earlier request that timed out.
	select {
	case <-s.replies:
	default:
	}

	s.waiting.Store(true)
	defer s.waiting.Store(false)

	if err := s.write(typ, payload); err != nil {
		return relay.Frame{}, err
	}

	timer := time.NewTimer(s.opts.ResponseTimeout)
	defer timer.Stop()

	for {
		select {
		case f := <-s.replies:
			if f.Type == relay.TypeError {
				var p relay.ErrorPayload
				_ = json.Unmarshal(f.Payload, &p)

				return relay.Frame{}, &Error{Message: p.Message}
			}
			if slices.Contains(accept, f.Type) {
				return f, nil
			}
		case <-timer.C:
			return relay.Frame{}, ErrNoResponse
		case <-ctx.Done():
			return relay.Frame{}, ctx.Err()
		case <-s.done:
			return relay.Frame{}, ErrClosed
		}
	}
}

func (s *Session) write(typ string, payload any) error {
	data, err := relay.EncodeFrame(typ, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) readLoop() {
	defer s.shutdown()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		f, err := relay.DecodeFrame(data)
		if err != nil {
			continue
		}

		if isReply(f.Type) && !s.waiting.Load() {
			continue
		}

		switch f.Type {
		case relay.TypePong:
		case relay.TypeRoomCreated, relay.TypeRoomJoined:
			if snap, err := s.adopt(f); err == nil {
				s.setCurrent(&snap)
			}
			s.reply(f)
		case relay.TypeRoomLeft:
			s.setCurrent(nil)
			s.reply(f)
		case relay.TypeError:
			s.reply(f)
		case relay.TypeRoomUpdate:
			s.update(f)
		default:
			select {
			case s.messages <- f:
			default:
			}
		}
	}
}

func isReply(typ string) bool {
	switch typ {
	case relay.TypeRoomCreated, relay.TypeRoomJoined, relay.TypeRoomLeft, relay.TypeError:
		return true
	default:
		return false
	}
}

func (s *Session) reply(f relay.Frame) {
	select {
	case s.replies <- f:
	default:
	}
}

func (s *Session) update(f relay.Frame) {
	var snap relay.Snapshot
	if err := json.Unmarshal(f.Payload, &snap); err != nil {
		return
	}

	s.mu.Lock()
	if s.current == nil || s.current.Code != snap.Code || s.current.ID != snap.ID {
		s.mu.Unlock()
		return
	}
	s.current = &snap
	s.mu.Unlock()

	select {
	case s.updates <- snap:
	default:
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.write(relay.TypePing, nil); err != nil {
				return
			}
		}
	}
}
