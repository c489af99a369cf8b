/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"encoding/json"
	"errors"

	"golang.org/x/time/rate"
)

// The methods in this file run on the Run goroutine only.

func (r *Relay) connect(ch Channel) {
	if _, ok := r.clients[ch]; ok {
		return
	}

	c := &Client{
		ID: r.newClientID(),
		ch: ch,
	}
	if r.opts.MessageRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(r.opts.MessageRate), r.opts.MessageBurst)
	}

	r.clients[ch] = c
	r.ids[c.ID] = struct{}{}
	r.touch(c)

	r.metrics.setClients(len(r.clients))

	r.log.Printf("CONNS: Client %s connected", c.ID)
}

// newClientID retries on the unlikely collision with a live client.
func (r *Relay) newClientID() string {
	for {
		id := r.opts.NewID()
		if _, taken := r.ids[id]; !taken {
			return id
		}
	}
}

func (r *Relay) disconnect(ch Channel) {
	c, ok := r.clients[ch]
	if !ok {
		return
	}

	r.leaveRoom(c)

	if c.timer != nil {
		c.timer.Stop()
	}

	delete(r.clients, ch)
	delete(r.ids, c.ID)

	r.metrics.setClients(len(r.clients))

	r.log.Printf("CONNS: Client %s disconnected", c.ID)
}

func (r *Relay) receive(ch Channel, data []byte) {
	c, ok := r.clients[ch]
	if !ok {
		r.log.Printf("CONNS: Dropped frame from unregistered channel")
		return
	}

	r.touch(c)

	f, err := DecodeFrame(data)
	if err != nil {
		r.metrics.frame("malformed")
		r.log.Printf("CONNS: Dropped malformed frame from %s: %v", c.ID, err)
		return
	}

	r.metrics.frame(frameLabel(f.Type))

	if f.Type == TypePing {
		r.reply(c, TypePong, nil)
		return
	}

	if !c.allow() {
		r.metrics.rateLimited()
		r.log.Printf("CONNS: Dropped %q frame from %s (rate limited)", f.Type, c.ID)

		// Room requests still get an answer; relayed frames are dropped.
		switch f.Type {
		case TypeRoomCreate, TypeRoomJoin, TypeRoomLeave:
			r.fail(c, newError(ErrRateLimit, "rate limit exceeded, slow down"))
		}

		return
	}

	switch f.Type {
	case TypeRoomCreate:
		err = r.createRoom(c, f.Payload)
	case TypeRoomJoin:
		err = r.joinRoom(c, f.Payload)
	case TypeRoomLeave:
		err = r.explicitLeave(c)
	default:
		r.forward(c, data)
	}

	if err != nil {
		r.fail(c, err)
	}
}

func (r *Relay) createRoom(c *Client, raw json.RawMessage) error {
	var req CreateRoomRequest
	if err := decodePayload(raw, &req); err != nil {
		return newError(ErrValidation, "invalid room: malformed payload")
	}

	if verr := validateCreate(req); verr != nil {
		return verr
	}

	if _, exists := r.rooms[req.Code]; exists {
		return newError(ErrConflict, "room code %s is already in use", req.Code)
	}

	r.leaveRoom(c)

	room := newRoom(req, c.ID, c.ch)
	r.rooms[room.Code] = room
	c.room = room.Code

	r.metrics.setRooms(len(r.rooms))

	r.log.Printf("ROOMS: Client %s created room %q (%s)", c.ID, room.Name, room.Code)

	r.reply(c, TypeRoomCreated, room.snapshot())
	r.broadcastRoomUpdate(room.Code)

	return nil
}

func (r *Relay) joinRoom(c *Client, raw json.RawMessage) error {
	var req JoinRoomRequest
	if err := decodePayload(raw, &req); err != nil {
		return newError(ErrValidation, "invalid join request: malformed payload")
	}

	room, ok := r.rooms[req.Code]
	if !ok {
		return newError(ErrNotFound, "room %s does not exist", req.Code)
	}

	if room.IsPrivate && room.Password != req.Password {
		return newError(ErrAuth, "incorrect password for room %s", req.Code)
	}

	if room.full() {
		return newError(ErrFull, "room %s is full", req.Code)
	}

	if room.hasPlayer(c.ID) {
		room.add(c.ID, c.ch)
		c.room = room.Code

		r.log.Printf("ROOMS: Client %s rejoined room %s", c.ID, room.Code)

		r.reply(c, TypeRoomJoined, room.snapshot())

		return nil
	}

	r.leaveRoom(c)

	room.add(c.ID, c.ch)
	c.room = room.Code

	r.log.Printf("ROOMS: Client %s joined room %s (%d/%d)", c.ID, room.Code, len(room.Players), room.MaxPlayers)

	r.reply(c, TypeRoomJoined, room.snapshot())
	r.broadcastRoomUpdate(room.Code)

	return nil
}

func (r *Relay) explicitLeave(c *Client) error {
	code := c.room
	if code == "" {
		return newError(ErrValidation, "not in a room")
	}

	r.leaveRoom(c)
	r.reply(c, TypeRoomLeft, LeftPayload{Code: code})

	return nil
}

// leaveRoom removes c from its room, if any. Empty rooms are deleted and
// remaining members receive the new snapshot.
func (r *Relay) leaveRoom(c *Client) {
	code := c.room
	if code == "" {
		return
	}
	c.room = ""

	room, ok := r.rooms[code]
	if !ok {
		return
	}

	hostChanged := room.remove(c.ID, c.ch)

	r.log.Printf("ROOMS: Client %s left room %s", c.ID, code)

	if room.empty() {
		delete(r.rooms, code)
		r.metrics.setRooms(len(r.rooms))

		r.log.Printf("ROOMS: Deleted empty room %s", code)

		return
	}

	if hostChanged {
		r.log.Printf("ROOMS: Client %s is now host of room %s", room.HostID, code)
	}

	r.broadcastRoomUpdate(code)
}

// broadcastRoomUpdate sends the room snapshot to every member. Delivery is
// best-effort: members whose channel is not open are skipped.
func (r *Relay) broadcastRoomUpdate(code string) {
	room, ok := r.rooms[code]
	if !ok {
		return
	}

	frame, err := EncodeFrame(TypeRoomUpdate, room.snapshot())
	if err != nil {
		r.log.Printf("ROOMS: Failed to encode update for room %s: %v", code, err)
		return
	}

	for ch := range room.members {
		if err := ch.Send(frame); err != nil {
			r.metrics.skipped()
			r.log.Printf("ROOMS: Skipped update for a member of room %s: %v", code, err)
		}
	}
}

// forward relays a frame the relay does not understand to the other members
// of the sender's room, byte for byte. Nothing about it is validated.
func (r *Relay) forward(c *Client, data []byte) {
	if c.room == "" {
		r.log.Printf("CONNS: Dropped frame from %s (not in a room)", c.ID)
		return
	}

	room, ok := r.rooms[c.room]
	if !ok {
		return
	}

	for ch := range room.members {
		if ch == c.ch {
			continue
		}
		if err := ch.Send(data); err != nil {
			r.metrics.skipped()
			continue
		}
		r.metrics.forwardedFrame()
	}
}

func (r *Relay) reply(c *Client, typ string, payload any) {
	frame, err := EncodeFrame(typ, payload)
	if err != nil {
		r.log.Printf("CONNS: Failed to encode %q for %s: %v", typ, c.ID, err)
		return
	}

	if err := c.send(frame); err != nil {
		r.metrics.skipped()
		r.log.Printf("CONNS: Failed to send %q to %s: %v", typ, c.ID, err)
	}
}

func (r *Relay) fail(c *Client, err error) {
	var rerr *Error
	if !errors.As(err, &rerr) {
		rerr = newError(ErrValidation, "%v", err)
	}

	r.metrics.failure(kindLabel(rerr))

	r.log.Printf("ROOMS: Rejected request from %s: %s", c.ID, rerr.Message)

	r.reply(c, TypeError, ErrorPayload{Message: rerr.Message})
}

func frameLabel(typ string) string {
	switch typ {
	case TypePing, TypeRoomCreate, TypeRoomJoin, TypeRoomLeave:
		return typ
	default:
		return "relayed"
	}
}
