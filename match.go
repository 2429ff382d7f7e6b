package main

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// handleReady marks a player ready and starts the match once both seats
// are filled and ready. The in-progress flag is checked and set on the
// coordinator goroutine, so a double-start cannot slip through.
func (r *room) handleReady(id uuid.UUID) {
	pl, ok := r.players[id]
	if !ok || pl.ready {
		return
	}

	pl.ready = true
	r.broadcast(playerReadyMessage{
		Type:   "player_ready",
		Player: pl.name,
	})

	if r.allReady() && !r.inProgress {
		r.inProgress = true
		log.Info().Strs("players", r.roster()).Msg("match started")
		r.broadcast(gameStartMessage{Type: "game_start"})
		r.nextRound()
	}
}

// handleAnswer records a submission. Answers outside an active round,
// duplicates, and answers from unknown connections are dropped silently.
func (r *room) handleAnswer(req answerRequest) {
	if !r.inProgress {
		return
	}
	pl, ok := r.players[req.id]
	if !ok {
		return
	}
	if _, dup := r.answered[req.id]; dup {
		return
	}

	latency := clampLatency(req.latencyMs, int(r.cfg.answerTimeout.Milliseconds()))
	r.answered[req.id] = answerRecord{answer: req.answer, latencyMs: latency}

	if !pl.peer.enqueue(answerFeedbackMessage{
		Type:      "answer_feedback",
		Answer:    req.answer,
		IsCorrect: req.answer == r.correctAnswer,
	}) {
		r.handleLeave(req.id, "stopped responding")
		return
	}

	if len(r.answered) == len(r.players) {
		r.resolveRound()
	}
}

// nextRound advances the match: draws a fresh question and arms the round
// timer, or finishes the match once the round counter runs out.
func (r *room) nextRound() {
	r.answered = make(map[uuid.UUID]answerRecord)
	r.round++
	r.gen++

	if r.round > r.cfg.totalRounds {
		r.finishMatch()
		return
	}

	q := r.cat.draw()
	r.word = q.word
	r.correctAnswer = q.correct
	r.options = q.options

	r.armRoundTimer()

	r.broadcast(newRoundMessage{
		Type:       "new_round",
		Round:      r.round,
		Word:       r.word,
		Options:    r.options,
		Scores:     r.scoresByName(),
		Multiplier: r.cfg.scoring.roundMultiplier(r.round),
	})

	log.Debug().Int("round", r.round).Str("word", r.word).Msg("round started")
}

// resolveRound scores the collected answers, reports the result, and
// moves on. Called once both players answered or the timeout settled.
func (r *room) resolveRound() {
	r.stopRoundTimer()

	entries := make([]answerEntry, 0, len(r.answered))
	for id, rec := range r.answered {
		pl, ok := r.players[id]
		if !ok {
			continue
		}
		entries = append(entries, answerEntry{
			name:      pl.name,
			answer:    rec.answer,
			latencyMs: rec.latencyMs,
		})
	}

	multiplier := r.cfg.scoring.roundMultiplier(r.round)
	outcome := r.cfg.scoring.resolveRound(entries, r.correctAnswer, multiplier)

	if outcome.winner != "" {
		for _, pl := range r.players {
			if pl.name == outcome.winner {
				pl.score += outcome.scoreAdded
			}
		}
	}

	r.broadcast(roundResultMessage{
		Type:          "round_result",
		BothCorrect:   outcome.bothCorrect,
		Winner:        outcome.winner,
		ScoreAdded:    outcome.scoreAdded,
		CorrectAnswer: r.correctAnswer,
		WrongAnswer:   outcome.wrongAnswer,
		Word:          r.word,
		IsLastRound:   r.round == r.cfg.totalRounds,
	})

	log.Debug().Int("round", r.round).Str("winner", outcome.winner).Int("score_added", outcome.scoreAdded).Msg("round resolved")

	r.nextRound()
}

func (r *room) finishMatch() {
	scores := r.scoresByName()

	maxScore := 0
	for _, pl := range r.players {
		if pl.score > maxScore {
			maxScore = pl.score
		}
	}

	winners := make([]string, 0, len(r.seats))
	for _, id := range r.seats {
		if r.players[id].score == maxScore {
			winners = append(winners, r.players[id].name)
		}
	}

	r.broadcast(gameOverMessage{
		Type:    "game_over",
		Scores:  scores,
		Winners: winners,
		IsTie:   len(winners) > 1,
	})

	log.Info().Strs("winners", winners).Msg("match finished")

	r.resetMatch()
}

// resetMatch returns the room to the lobby: timer stopped, round and word
// state cleared, every surviving player back to zero and unready.
func (r *room) resetMatch() {
	r.stopRoundTimer()
	r.inProgress = false
	r.round = 0
	r.gen++
	r.word = ""
	r.correctAnswer = ""
	r.options = nil
	r.answered = make(map[uuid.UUID]answerRecord)

	for _, pl := range r.players {
		pl.score = 0
		pl.ready = false
	}
}

// armRoundTimer schedules this round's timeout. The timer goroutine
// carries the round generation, so if the round resolves first the fired
// event is recognized as stale and dropped.
func (r *room) armRoundTimer() {
	r.stopRoundTimer()

	timer := r.clock.NewTimer(r.cfg.answerTimeout + r.cfg.roundGrace)
	done := make(chan struct{})
	r.timer = timer
	r.timerDone = done

	go func(gen int) {
		select {
		case <-timer.Chan():
			select {
			case r.timeouts <- timeoutEvent{gen: gen}:
			case <-done:
			}
		case <-done:
			stopAndDrainTimer(timer)
		}
	}(r.gen)
}

// stopRoundTimer cancels the pending timeout, if any. Safe to call when
// no timer is armed.
func (r *room) stopRoundTimer() {
	if r.timerDone == nil {
		return
	}
	close(r.timerDone)
	r.timerDone = nil
	r.timer = nil
}

// stopAndDrainTimer safely stops a timer and drains its channel, per the
// time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

type probeTarget struct {
	id   uuid.UUID
	name string
	peer peer
}

// handleTimeout fires when the round timer elapses. Unanswered players
// get probed off the coordinator goroutine; resolution waits for the
// probe report.
func (r *room) handleTimeout(gen int) {
	if gen != r.gen || !r.inProgress {
		log.Debug().Int("gen", gen).Msg("ignoring stale round timeout")
		return
	}

	var targets []probeTarget
	for _, id := range r.seats {
		if _, ok := r.answered[id]; ok {
			continue
		}
		targets = append(targets, probeTarget{id: id, name: r.players[id].name, peer: r.players[id].peer})
	}

	if len(targets) == 0 {
		r.resolveRound()
		return
	}

	log.Debug().Int("round", r.round).Int("unanswered", len(targets)).Msg("round timed out, probing silent players")

	go r.probeAll(gen, targets)
}

// probeAll pings every silent player concurrently and reports who is
// merely slow versus actually gone. Runs outside the coordinator so the
// bounded probe wait never stalls message handling.
func (r *room) probeAll(gen int, targets []probeTarget) {
	report := probeReport{gen: gen}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, t := range targets {
		wg.Add(1)
		go func(t probeTarget) {
			defer wg.Done()

			err := t.peer.probe(r.cfg.probeTimeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Info().Str("player", t.name).Err(err).Msg("liveness probe failed")
				report.dead = append(report.dead, t.id)
			} else {
				report.slow = append(report.slow, t.id)
			}
		}(t)
	}

	wg.Wait()
	r.reports <- report
}

// handleProbeReport settles a timed-out round. Dead players void the
// round through the disconnect path; live-but-slow players are recorded
// as a wrong answer at full timeout latency.
func (r *room) handleProbeReport(rep probeReport) {
	if rep.gen != r.gen || !r.inProgress {
		log.Debug().Int("gen", rep.gen).Msg("ignoring stale probe report")
		return
	}

	if len(rep.dead) > 0 {
		for _, id := range rep.dead {
			r.handleLeave(id, "failed a liveness check")
		}
		return
	}

	for _, id := range rep.slow {
		if _, ok := r.players[id]; !ok {
			continue
		}
		r.answered[id] = answerRecord{answer: "", latencyMs: int(r.cfg.answerTimeout.Milliseconds())}
	}

	if len(r.players) < maxPlayers {
		return
	}

	r.resolveRound()
}
