/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lobby

import (
	"crypto/rand"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewRoomCode returns a random six character code players can read out loud.
func NewRoomCode() (string, error) {
	// Bytes at or above limit are discarded so every symbol is equally likely.
	limit := 256 - 256%len(roomCodeAlphabet)

	out := make([]byte, 0, roomCodeLength)
	buf := make([]byte, roomCodeLength*2)

	for len(out) < roomCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, roomCodeAlphabet[int(b)%len(roomCodeAlphabet)])
			if len(out) == roomCodeLength {
				break
			}
		}
	}

	return string(out), nil
}
