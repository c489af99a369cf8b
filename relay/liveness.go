/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

// touch restarts the client's inactivity timer. Each restart bumps the
// generation so an expiry already in flight for an older timer is ignored.
func (r *Relay) touch(c *Client) {
	if r.opts.PingTimeout <= 0 {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}

	c.gen++
	e := expiry{ch: c.ch, gen: c.gen}

	c.timer = r.afterFunc(r.opts.PingTimeout, func() {
		select {
		case r.expire <- e:
		case <-r.quit:
		}
	})
}

func (r *Relay) expired(e expiry) {
	c, ok := r.clients[e.ch]
	if !ok || c.gen != e.gen {
		return
	}

	r.metrics.timedOut()

	r.log.Printf("CONNS: Client %s sent nothing for %s, closing connection", c.ID, r.opts.PingTimeout)

	_ = c.ch.Close()

	r.disconnect(e.ch)
}
