/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/hideseek/relay"
	"github.com/julienschmidt/httprouter"
)

// serveHomePage renders a plain status page listing the public rooms.
func serveHomePage(cfg *Config, rl *relay.Relay, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		rooms, err := rl.Rooms(r.Context())
		if err != nil {
			http.Error(w, "relay unavailable", http.StatusServiceUnavailable)

			return
		}

		var body strings.Builder

		body.WriteString(fmt.Sprintf("<h1>hideseek v%s</h1>", releaseVersion))
		body.WriteString(fmt.Sprintf("<p>Clients connect to <code>%s/ws</code>.</p>", html.EscapeString(cfg.prefix)))

		if len(rooms) == 0 {
			body.WriteString("<p>No public rooms are open.</p>")
		} else {
			body.WriteString("<table><tr><th>Code</th><th>Name</th><th>Players</th></tr>")
			for _, room := range rooms {
				body.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%d/%d</td></tr>",
					html.EscapeString(room.Code),
					html.EscapeString(room.Name),
					len(room.Players),
					room.MaxPlayers,
				))
			}
			body.WriteString("</table>")
		}

		page := newPage("hideseek", body.String())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(page)))
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(page))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
