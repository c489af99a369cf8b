/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package relay brokers room membership for the hide-and-seek game.
//
// A Relay owns every room and client record. All state is mutated by the
// goroutine running Run, one event at a time, so handlers never lock.
// Transports hand connections to the relay with Connect, feed it frames
// with Receive and report closed connections with Disconnect.
package relay

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPingTimeout is how long a connection may stay silent before it is closed.
const DefaultPingTimeout = 30 * time.Second

// ErrStopped is returned by queries once Run has returned.
var ErrStopped = errors.New("relay stopped")

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

type Options struct {
	// PingTimeout closes connections that send nothing for this long.
	// Zero disables the liveness timer.
	PingTimeout time.Duration

	// MessageRate limits non-ping frames per second per connection.
	// Zero disables rate limiting.
	MessageRate  float64
	MessageBurst int

	Logger  Logger
	Metrics *Metrics

	// NewID generates client identities. Defaults to random UUIDs.
	NewID func() string
}

type inboundFrame struct {
	ch   Channel
	data []byte
}

type expiry struct {
	ch  Channel
	gen uint64
}

type Relay struct {
	opts    Options
	log     Logger
	metrics *Metrics

	clients map[Channel]*Client
	ids     map[string]struct{}
	rooms   map[string]*Room // keyed by code

	register chan Channel
	unreg    chan Channel
	inbound  chan inboundFrame
	expire   chan expiry
	queries  chan func()

	quit     chan struct{}
	quitOnce sync.Once

	afterFunc func(time.Duration, func()) stopper
}

func New(opts Options) *Relay {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.MessageRate > 0 && opts.MessageBurst < 1 {
		opts.MessageBurst = 1
	}

	r := &Relay{
		opts:     opts,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		clients:  make(map[Channel]*Client),
		ids:      make(map[string]struct{}),
		rooms:    make(map[string]*Room),
		register: make(chan Channel),
		unreg:    make(chan Channel),
		inbound:  make(chan inboundFrame),
		expire:   make(chan expiry),
		queries:  make(chan func()),
		quit:     make(chan struct{}),
	}

	r.afterFunc = func(d time.Duration, f func()) stopper {
		return time.AfterFunc(d, f)
	}

	return r
}

// Run processes events until ctx is cancelled, then closes every live
// channel. It must be called exactly once.
func (r *Relay) Run(ctx context.Context) {
	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case ch := <-r.register:
			r.safely("connect", func() { r.connect(ch) })

		case ch := <-r.unreg:
			r.safely("disconnect", func() { r.disconnect(ch) })

		case in := <-r.inbound:
			r.safely("receive", func() { r.receive(in.ch, in.data) })

		case e := <-r.expire:
			r.safely("expire", func() { r.expired(e) })

		case q := <-r.queries:
			r.safely("query", q)
		}
	}
}

// Connect registers a newly opened channel.
func (r *Relay) Connect(ch Channel) {
	select {
	case r.register <- ch:
	case <-r.quit:
	}
}

// Disconnect runs the leave path for a closed channel and forgets it.
// Disconnecting an unknown channel does nothing.
func (r *Relay) Disconnect(ch Channel) {
	select {
	case r.unreg <- ch:
	case <-r.quit:
	}
}

// Receive hands one inbound frame to the relay. Frames from one channel
// are processed in the order Receive is called.
func (r *Relay) Receive(ch Channel, data []byte) {
	select {
	case r.inbound <- inboundFrame{ch: ch, data: data}:
	case <-r.quit:
	}
}

// Rooms returns snapshots of every public room, sorted by code.
func (r *Relay) Rooms(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot

	err := r.query(ctx, func() {
		out = r.publicRooms()
	})

	return out, err
}

// Room returns the snapshot of a public room.
func (r *Relay) Room(ctx context.Context, code string) (Snapshot, bool, error) {
	var (
		snap  Snapshot
		found bool
	)

	err := r.query(ctx, func() {
		room, ok := r.rooms[code]
		if !ok || room.IsPrivate {
			return
		}
		snap, found = room.snapshot(), true
	})

	return snap, found, err
}

// Has reports whether a live room, public or private, uses code.
func (r *Relay) Has(ctx context.Context, code string) (bool, error) {
	var found bool

	err := r.query(ctx, func() {
		_, found = r.rooms[code]
	})

	return found, err
}

func (r *Relay) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	q := func() {
		defer close(done)
		fn()
	}

	select {
	case r.queries <- q:
	case <-r.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done

	return nil
}

func (r *Relay) publicRooms() []Snapshot {
	out := make([]Snapshot, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.IsPrivate {
			continue
		}
		out = append(out, room.snapshot())
	}

	slices.SortFunc(out, func(a, b Snapshot) int {
		return strings.Compare(a.Code, b.Code)
	})

	return out
}

func (r *Relay) safely(event string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Printf("RELAY: Recovered from panic during %s: %v", event, p)
		}
	}()

	fn()
}

func (r *Relay) shutdown() {
	r.quitOnce.Do(func() {
		close(r.quit)
	})

	for ch, c := range r.clients {
		if c.timer != nil {
			c.timer.Stop()
		}
		_ = ch.Close()
	}

	clear(r.clients)
	clear(r.ids)
	clear(r.rooms)

	r.metrics.setClients(0)
	r.metrics.setRooms(0)

	r.log.Printf("RELAY: Stopped")
}
