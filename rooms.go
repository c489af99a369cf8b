/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Room relay endpoints
//
// - /ws                WebSocket carrying the room protocol (see package relay)
// - /rooms             JSON list of public rooms
// - /rooms/:code       JSON snapshot of one public room
// - /rooms/:code/qr    PNG QR code of the join link for a live room

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Seednode/hideseek/relay"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, rl *relay.Relay) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: WebSocket upgrade for %s failed: %v", realIP(r), err)

			return
		}

		conn.SetReadLimit(cfg.maxMessageSize)

		logf(cfg, "CONNS: Accepted connection from %s", realIP(r))

		rl.ServeWebSocket(conn)
	}
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	return w.Write(data)
}

func serveRooms(cfg *Config, rl *relay.Relay, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		rooms, err := rl.Rooms(r.Context())
		if err != nil {
			http.Error(w, "relay unavailable", http.StatusServiceUnavailable)

			return
		}

		written, err := writeJSON(cfg, w, http.StatusOK, rooms)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room list (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveRoom(cfg *Config, rl *relay.Relay, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		snap, found, err := rl.Room(r.Context(), ps.ByName("code"))
		switch {
		case err != nil:
			http.Error(w, "relay unavailable", http.StatusServiceUnavailable)

			return
		case !found:
			http.Error(w, "room not found", http.StatusNotFound)

			return
		}

		if _, err := writeJSON(cfg, w, http.StatusOK, snap); err != nil {
			errs <- err
		}
	}
}

// joinLink is the game client URL for a room code, using --join-url when set
// and the address the request came in on otherwise.
func joinLink(cfg *Config, r *http.Request, code string) string {
	base := cfg.joinURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host + cfg.prefix + "/"
	}

	u, err := url.Parse(base)
	if err != nil {
		return base
	}

	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()

	return u.String()
}

// serveRoomQR generates a PNG QR code of the join link for a live room.
func serveRoomQR(cfg *Config, rl *relay.Relay, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")

		found, err := rl.Has(r.Context(), code)
		switch {
		case err != nil:
			http.Error(w, "relay unavailable", http.StatusServiceUnavailable)

			return
		case !found:
			http.Error(w, "room not found", http.StatusNotFound)

			return
		}

		png, err := qrcode.Encode(joinLink(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

func registerRooms(cfg *Config, rl *relay.Relay, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, rl))

	mux.GET(cfg.prefix+"/rooms", serveRooms(cfg, rl, errs))

	mux.GET(cfg.prefix+"/rooms/:code", serveRoom(cfg, rl, errs))

	mux.GET(cfg.prefix+"/rooms/:code/qr", serveRoomQR(cfg, rl, errs))
}
