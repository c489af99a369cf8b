/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"errors"

	"golang.org/x/time/rate"
)

// ErrChannelClosed is returned by Channel.Send once the channel is no longer open.
var ErrChannelClosed = errors.New("channel closed")

// Channel is one client's bidirectional connection as seen by the relay.
// Send must not block. A channel that cannot take a frame returns an error,
// is skipped, and must close itself so its disconnect follows.
type Channel interface {
	Send(frame []byte) error
	Close() error
}

// Client is the relay's record of one live connection.
type Client struct {
	ID string

	ch      Channel
	room    string // code of the joined room, empty when none
	timer   stopper
	gen     uint64
	limiter *rate.Limiter
}

// stopper is the part of *time.Timer the relay needs.
type stopper interface {
	Stop() bool
}

func (c *Client) send(frame []byte) error {
	return c.ch.Send(frame)
}

// allow reports whether the client is within its message rate.
func (c *Client) allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}
