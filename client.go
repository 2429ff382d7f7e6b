package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer       = 16
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsPeer is the websocket implementation of the room's peer interface.
// The room coordinator owns the send buffer; the connection's write pump
// drains it. The pong channel feeds liveness probes.
type wsPeer struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan any
	pong chan struct{}
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	p := &wsPeer{
		id:   uuid.New(),
		conn: conn,
		send: make(chan any, sendBuffer),
		pong: make(chan struct{}, 1),
	}

	conn.SetPongHandler(func(string) error {
		select {
		case p.pong <- struct{}{}:
		default:
		}
		return nil
	})

	return p
}

// enqueue hands a message to the write pump without blocking. A false
// return means the peer's buffer is full and it should be dropped.
func (p *wsPeer) enqueue(msg any) bool {
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

// close shuts down the send path. Only the room coordinator calls this,
// and only after the peer has left the registry.
func (p *wsPeer) close() {
	close(p.send)
}

// probe sends a ping and waits briefly for the matching pong, to tell a
// slow-but-connected peer apart from a dead one.
func (p *wsPeer) probe(d time.Duration) error {
	// Discard any pong left over from an earlier probe.
	select {
	case <-p.pong:
	default:
	}

	if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(d)); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.pong:
		return nil
	case <-timer.C:
		return errProbeTimeout
	}
}

func (p *wsPeer) writePump() {
	defer p.conn.Close()

	for msg := range p.send {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := p.conn.WriteJSON(msg); err != nil {
			return
		}
	}

	_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (p *wsPeer) readPump(rm *room) {
	defer func() {
		rm.leave(p.id, "disconnected")
		_ = p.conn.Close()
	}()

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Str("conn_id", p.id.String()).Err(err).Msg("dropping peer after malformed message")
			return
		}

		switch msg.Type {
		case msgReady:
			rm.ready(p.id)
		case msgAnswer:
			rm.answer(p.id, msg.Answer, msg.Time)
		case msgDisconnect:
			rm.leave(p.id, "left the game")
			return
		default:
			log.Warn().Str("conn_id", p.id.String()).Str("type", msg.Type).Msg("dropping peer after unexpected message")
			return
		}
	}
}

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return errBadName
	}
	return nil
}

// serveWS upgrades the connection and runs the admission handshake: the
// first frame is the raw chosen name, answered either with admission or
// with a name_taken rejection before closing.
func serveWS(cfg *Config, rm *room) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("remote", realIP(r)).Msg("websocket upgrade failed")
			return
		}

		p := newWSPeer(conn)

		_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}
		_ = conn.SetReadDeadline(time.Time{})

		name := strings.TrimSpace(string(frame))
		if err := validateName(name); err != nil {
			rejectAdmission(conn, err, 4002)
			return
		}

		if err := rm.admit(p, name); err != nil {
			code := 4000
			if errors.Is(err, errNameTaken) {
				code = 4001
			}
			log.Info().Str("player", name).Str("remote", realIP(r)).Err(err).Msg("admission rejected")
			rejectAdmission(conn, err, code)
			return
		}

		log.Info().Str("conn_id", p.id.String()).Str("player", name).Str("remote", realIP(r)).Msg("player connected")

		go p.writePump()
		p.readPump(rm)
	}
}

func rejectAdmission(conn *websocket.Conn, reason error, code int) {
	_ = conn.WriteJSON(nameTakenMessage{
		Type:    "name_taken",
		Message: reason.Error(),
	})
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason.Error()), deadline)
	_ = conn.Close()
}
