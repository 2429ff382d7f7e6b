package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	maxPlayers    = 2
	maxNameLength = 20
)

// peer is the room's one-way handle to a connected client. The websocket
// layer implements it; tests substitute in-memory fakes.
type peer interface {
	enqueue(msg any) bool
	probe(timeout time.Duration) error
	close()
}

// player is a registry entry. Owned exclusively by the room coordinator;
// nothing outside the run loop reads or writes these fields.
type player struct {
	id    uuid.UUID
	peer  peer
	name  string
	score int
	ready bool
}

type answerRecord struct {
	answer    string
	latencyMs int
}

type joinRequest struct {
	id    uuid.UUID
	p     peer
	name  string
	reply chan error
}

type readyRequest struct {
	id uuid.UUID
}

type answerRequest struct {
	id        uuid.UUID
	answer    string
	latencyMs int
}

type leaveRequest struct {
	id    uuid.UUID
	cause string
}

type timeoutEvent struct {
	gen int
}

type probeReport struct {
	gen  int
	dead []uuid.UUID
	slow []uuid.UUID
}

// room is the single two-seat match the server hosts. All shared state
// lives behind one coordinator goroutine (run) fed by typed request
// channels, so every transition applies under one logical lock.
type room struct {
	cfg   *Config
	cat   *catalog
	clock clockwork.Clock

	joins    chan joinRequest
	readies  chan readyRequest
	answers  chan answerRequest
	leaves   chan leaveRequest
	timeouts chan timeoutEvent
	reports  chan probeReport

	// Registry state, coordinator-owned. seats preserves admission order
	// so rosters and scores broadcast deterministically.
	players map[uuid.UUID]*player
	seats   []uuid.UUID

	// Match state, coordinator-owned. gen is the round generation: stale
	// timers and probe reports carry an old value and no-op.
	inProgress bool
	round      int
	gen        int
	word          string
	correctAnswer string
	options    []string
	answered   map[uuid.UUID]answerRecord
	timer      clockwork.Timer
	timerDone  chan struct{}
}

func newRoom(cfg *Config, cat *catalog, clock clockwork.Clock) *room {
	return &room{
		cfg:      cfg,
		cat:      cat,
		clock:    clock,
		joins:    make(chan joinRequest),
		readies:  make(chan readyRequest),
		answers:  make(chan answerRequest),
		leaves:   make(chan leaveRequest),
		timeouts: make(chan timeoutEvent),
		reports:  make(chan probeReport),
		players:  make(map[uuid.UUID]*player),
		answered: make(map[uuid.UUID]answerRecord),
	}
}

func (r *room) run(ctx context.Context) {
	log.Debug().Msg("room coordinator started")

	for {
		select {
		case <-ctx.Done():
			r.stopRoundTimer()
			for _, id := range r.seats {
				r.players[id].peer.close()
			}
			return

		case jr := <-r.joins:
			jr.reply <- r.handleJoin(jr)

		case req := <-r.readies:
			r.handleReady(req.id)

		case req := <-r.answers:
			r.handleAnswer(req)

		case req := <-r.leaves:
			r.handleLeave(req.id, req.cause)

		case ev := <-r.timeouts:
			r.handleTimeout(ev.gen)

		case rep := <-r.reports:
			r.handleProbeReport(rep)
		}
	}
}

// admit asks the coordinator for a seat. It blocks until the coordinator
// answers, so callers see errRoomFull/errNameTaken synchronously.
func (r *room) admit(p *wsPeer, name string) error {
	return r.admitPeer(p.id, p, name)
}

func (r *room) admitPeer(id uuid.UUID, p peer, name string) error {
	reply := make(chan error, 1)
	r.joins <- joinRequest{id: id, p: p, name: name, reply: reply}
	return <-reply
}

func (r *room) ready(id uuid.UUID) {
	r.readies <- readyRequest{id: id}
}

func (r *room) answer(id uuid.UUID, answer string, latencyMs int) {
	r.answers <- answerRequest{id: id, answer: answer, latencyMs: latencyMs}
}

func (r *room) leave(id uuid.UUID, cause string) {
	r.leaves <- leaveRequest{id: id, cause: cause}
}

func (r *room) handleJoin(jr joinRequest) error {
	if len(r.players) >= maxPlayers {
		return errRoomFull
	}
	for _, pl := range r.players {
		if pl.name == jr.name {
			return errNameTaken
		}
	}

	pl := &player{id: jr.id, peer: jr.p, name: jr.name}
	r.players[jr.id] = pl
	r.seats = append(r.seats, jr.id)

	pl.peer.enqueue(gameConfigMessage{
		Type:          "game_config",
		TotalRounds:   r.cfg.totalRounds,
		AnswerTimeout: int(r.cfg.answerTimeout.Milliseconds()),
	})

	r.broadcast(playersUpdateMessage{
		Type:    "players_update",
		Players: r.roster(),
	})

	// Replay readiness so a late joiner sees who is already waiting.
	for _, id := range r.seats {
		if other := r.players[id]; other.ready && other.id != jr.id {
			pl.peer.enqueue(playerReadyMessage{
				Type:   "player_ready",
				Player: other.name,
			})
		}
	}

	log.Info().Str("player", jr.name).Int("players", len(r.players)).Msg("player admitted")

	return nil
}

// handleLeave removes a player and tears down any running match. It is
// idempotent: leaving twice, or leaving while never admitted, is a no-op.
func (r *room) handleLeave(id uuid.UUID, cause string) {
	pl, ok := r.players[id]
	if !ok {
		return
	}

	delete(r.players, id)
	for i, seat := range r.seats {
		if seat == id {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			break
		}
	}

	if r.inProgress {
		r.resetMatch()
	}

	if len(r.players) > 0 {
		r.broadcast(gameOverMessage{
			Type:      "game_over",
			Reason:    "player " + pl.name + " " + cause + ", the game has ended",
			Scores:    r.scoresByName(),
			ResetGame: true,
		})
		r.broadcast(playersUpdateMessage{
			Type:    "players_update",
			Players: r.roster(),
		})
	}

	pl.peer.close()

	log.Info().Str("player", pl.name).Str("cause", cause).Int("players", len(r.players)).Msg("player removed")
}

// broadcast enqueues a message for every seated player. Peers that have
// stopped draining their buffers are dropped through the leave path, so
// one stalled client never blocks the other.
func (r *room) broadcast(msg any) {
	var stalled []uuid.UUID
	for _, id := range r.seats {
		if !r.players[id].peer.enqueue(msg) {
			stalled = append(stalled, id)
		}
	}

	for _, id := range stalled {
		log.Warn().Str("player", r.players[id].name).Msg("send buffer full, dropping peer")
		r.handleLeave(id, "stopped responding")
	}
}

func (r *room) allReady() bool {
	if len(r.players) != maxPlayers {
		return false
	}
	for _, pl := range r.players {
		if !pl.ready {
			return false
		}
	}
	return true
}

func (r *room) roster() []string {
	names := make([]string, 0, len(r.seats))
	for _, id := range r.seats {
		names = append(names, r.players[id].name)
	}
	return names
}

func (r *room) scoresByName() map[string]int {
	scores := make(map[string]int, len(r.players))
	for _, pl := range r.players {
		scores[pl.name] = pl.score
	}
	return scores
}
