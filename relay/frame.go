/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"encoding/json"
	"errors"
)

// Frame types understood by the relay. Any other type is relayed opaquely.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeRoomCreate  = "room_create"
	TypeRoomJoin    = "room_join"
	TypeRoomLeave   = "room_leave"
	TypeRoomCreated = "room_created"
	TypeRoomJoined  = "room_joined"
	TypeRoomUpdate  = "room_update"
	TypeRoomLeft    = "room_left"
	TypeError       = "error"
)

var errMissingType = errors.New("frame has no type")

// Frame is the envelope of every message on the wire.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateRoomRequest is the payload of a room_create frame.
type CreateRoomRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	IsPrivate  bool   `json:"isPrivate"`
	MaxPlayers *int   `json:"maxPlayers"`
	Password   string `json:"password,omitempty"`
}

// JoinRoomRequest is the payload of a room_join frame.
type JoinRoomRequest struct {
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

// LeftPayload acknowledges an explicit room_leave.
type LeftPayload struct {
	Code string `json:"code"`
}

// ErrorPayload is the payload of an error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

type outFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// DecodeFrame parses an inbound frame. Frames that are not JSON objects or
// that carry no type are rejected.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	if f.Type == "" {
		return Frame{}, errMissingType
	}
	return f, nil
}

// EncodeFrame builds an outbound frame. A nil payload is omitted.
func EncodeFrame(typ string, payload any) ([]byte, error) {
	return json.Marshal(outFrame{Type: typ, Payload: payload})
}

// decodePayload treats an absent payload as an empty object.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
