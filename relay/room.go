/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"slices"
	"strings"
)

// Room is a named, coded, capacity-bounded group of clients.
type Room struct {
	ID         string
	Name       string
	Code       string
	HostID     string
	Players    []string // join order
	IsPrivate  bool
	Password   string
	MaxPlayers int

	members map[Channel]struct{}
}

// Snapshot is the part of a Room that is sent to clients.
type Snapshot struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	HostID     string   `json:"hostId"`
	Players    []string `json:"players"`
	IsPrivate  bool     `json:"isPrivate"`
	MaxPlayers int      `json:"maxPlayers"`
}

func newRoom(req CreateRoomRequest, hostID string, ch Channel) *Room {
	return &Room{
		ID:         req.ID,
		Name:       req.Name,
		Code:       req.Code,
		HostID:     hostID,
		Players:    []string{hostID},
		IsPrivate:  req.IsPrivate,
		Password:   req.Password,
		MaxPlayers: *req.MaxPlayers,
		members:    map[Channel]struct{}{ch: {}},
	}
}

func (r *Room) snapshot() Snapshot {
	players := make([]string, len(r.Players))
	copy(players, r.Players)

	return Snapshot{
		ID:         r.ID,
		Name:       r.Name,
		Code:       r.Code,
		HostID:     r.HostID,
		Players:    players,
		IsPrivate:  r.IsPrivate,
		MaxPlayers: r.MaxPlayers,
	}
}

func (r *Room) hasPlayer(id string) bool {
	return slices.Contains(r.Players, id)
}

func (r *Room) full() bool {
	return len(r.Players) >= r.MaxPlayers
}

func (r *Room) add(id string, ch Channel) {
	if !r.hasPlayer(id) {
		r.Players = append(r.Players, id)
	}
	r.members[ch] = struct{}{}
}

// remove drops a player and its channel. If the host left and players
// remain, the earliest remaining joiner becomes host; hostChanged reports it.
func (r *Room) remove(id string, ch Channel) (hostChanged bool) {
	r.Players = slices.DeleteFunc(r.Players, func(p string) bool {
		return p == id
	})
	delete(r.members, ch)

	if len(r.Players) > 0 && r.HostID == id {
		r.HostID = r.Players[0]
		return true
	}
	return false
}

func (r *Room) empty() bool {
	return len(r.Players) == 0
}

// validateCreate collects every problem with a create request.
func validateCreate(req CreateRoomRequest) *Error {
	var problems []string

	if req.ID == "" {
		problems = append(problems, "room id is required")
	}
	if req.Name == "" {
		problems = append(problems, "room name is required")
	}
	if req.Code == "" {
		problems = append(problems, "room code is required")
	}
	if req.MaxPlayers == nil || *req.MaxPlayers <= 0 {
		problems = append(problems, "max players must be greater than zero")
	}
	if req.IsPrivate && req.Password == "" {
		problems = append(problems, "private rooms require a password")
	}

	if len(problems) == 0 {
		return nil
	}
	return newError(ErrValidation, "invalid room: %s", strings.Join(problems, ", "))
}
