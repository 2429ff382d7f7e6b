package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// fakePeer stands in for a websocket connection in coordinator tests.
type fakePeer struct {
	id       uuid.UUID
	msgs     chan any
	probeErr error
}

func newFakePeer() *fakePeer {
	return &fakePeer{
		id:   uuid.New(),
		msgs: make(chan any, 64),
	}
}

func (f *fakePeer) enqueue(msg any) bool {
	select {
	case f.msgs <- msg:
		return true
	default:
		return false
	}
}

func (f *fakePeer) probe(time.Duration) error {
	return f.probeErr
}

func (f *fakePeer) close() {}

func testConfig(totalRounds int) *Config {
	cfg := &Config{
		totalRounds:   totalRounds,
		answerTimeout: 10 * time.Second,
		roundGrace:    10 * time.Second,
		probeTimeout:  time.Second,
	}
	cfg.scoring = defaultScoringParams(totalRounds)
	return cfg
}

// testCatalog holds a single word, so the correct answer ("clear") is
// known without peeking at coordinator state.
func testCatalog() *catalog {
	return &catalog{entries: []catalogEntry{{
		Word:       "lucid",
		Difficulty: 3,
		Options:    []string{"clear", "opaque", "dense", "loud"},
	}}}
}

func startTestRoom(t *testing.T, cfg *Config, clock clockwork.Clock) *room {
	t.Helper()

	rm := newRoom(cfg, testCatalog(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go rm.run(ctx)

	return rm
}

func nextMessage(t *testing.T, f *fakePeer) any {
	t.Helper()

	select {
	case msg := <-f.msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func expectMessage[T any](t *testing.T, f *fakePeer) T {
	t.Helper()

	msg := nextMessage(t, f)
	typed, ok := msg.(T)
	if !ok {
		t.Fatalf("expected %T, got %#v", *new(T), msg)
	}
	return typed
}

func admitPlayer(t *testing.T, rm *room, name string) *fakePeer {
	t.Helper()

	f := newFakePeer()
	if err := rm.admitPeer(f.id, f, name); err != nil {
		t.Fatalf("admitting %s: %v", name, err)
	}
	return f
}

// startMatch admits alice and bob, readies both, and consumes every
// message up to and including the first new_round.
func startMatch(t *testing.T, rm *room) (a, b *fakePeer, firstRound newRoundMessage) {
	t.Helper()

	a = admitPlayer(t, rm, "alice")
	expectMessage[gameConfigMessage](t, a)
	expectMessage[playersUpdateMessage](t, a)

	b = admitPlayer(t, rm, "bob")
	expectMessage[playersUpdateMessage](t, a)
	expectMessage[gameConfigMessage](t, b)
	expectMessage[playersUpdateMessage](t, b)

	rm.ready(a.id)
	expectMessage[playerReadyMessage](t, a)
	expectMessage[playerReadyMessage](t, b)

	rm.ready(b.id)
	expectMessage[playerReadyMessage](t, a)
	expectMessage[playerReadyMessage](t, b)

	expectMessage[gameStartMessage](t, a)
	expectMessage[gameStartMessage](t, b)

	firstRound = expectMessage[newRoundMessage](t, a)
	expectMessage[newRoundMessage](t, b)

	return a, b, firstRound
}

func TestAdmissionRoomFull(t *testing.T) {
	rm := startTestRoom(t, testConfig(9), clockwork.NewRealClock())

	admitPlayer(t, rm, "alice")
	admitPlayer(t, rm, "bob")

	third := newFakePeer()
	if err := rm.admitPeer(third.id, third, "carol"); !errors.Is(err, errRoomFull) {
		t.Fatalf("err = %v, want errRoomFull", err)
	}
}

func TestAdmissionNameTaken(t *testing.T) {
	rm := startTestRoom(t, testConfig(9), clockwork.NewRealClock())

	admitPlayer(t, rm, "alice")

	dup := newFakePeer()
	if err := rm.admitPeer(dup.id, dup, "alice"); !errors.Is(err, errNameTaken) {
		t.Fatalf("err = %v, want errNameTaken", err)
	}

	// The rejection must not consume the free seat.
	admitPlayer(t, rm, "bob")
}

func TestAdmissionBroadcastsRoster(t *testing.T) {
	rm := startTestRoom(t, testConfig(9), clockwork.NewRealClock())

	a := admitPlayer(t, rm, "alice")

	cfgMsg := expectMessage[gameConfigMessage](t, a)
	if cfgMsg.TotalRounds != 9 || cfgMsg.AnswerTimeout != 10000 {
		t.Errorf("unexpected game_config: %+v", cfgMsg)
	}

	roster := expectMessage[playersUpdateMessage](t, a)
	if len(roster.Players) != 1 || roster.Players[0] != "alice" {
		t.Errorf("roster = %v, want [alice]", roster.Players)
	}

	b := admitPlayer(t, rm, "bob")

	roster = expectMessage[playersUpdateMessage](t, a)
	if len(roster.Players) != 2 || roster.Players[0] != "alice" || roster.Players[1] != "bob" {
		t.Errorf("roster = %v, want [alice bob]", roster.Players)
	}

	expectMessage[gameConfigMessage](t, b)
	roster = expectMessage[playersUpdateMessage](t, b)
	if len(roster.Players) != 2 {
		t.Errorf("roster = %v, want [alice bob]", roster.Players)
	}
}

func TestAdmissionReplaysReadyStates(t *testing.T) {
	rm := startTestRoom(t, testConfig(9), clockwork.NewRealClock())

	a := admitPlayer(t, rm, "alice")
	rm.ready(a.id)

	b := admitPlayer(t, rm, "bob")

	expectMessage[gameConfigMessage](t, b)
	expectMessage[playersUpdateMessage](t, b)

	ready := expectMessage[playerReadyMessage](t, b)
	if ready.Player != "alice" {
		t.Errorf("replayed ready for %q, want alice", ready.Player)
	}
}

func TestLeaveIdempotent(t *testing.T) {
	rm := startTestRoom(t, testConfig(9), clockwork.NewRealClock())

	a := admitPlayer(t, rm, "alice")
	b := admitPlayer(t, rm, "bob")

	expectMessage[gameConfigMessage](t, b)
	expectMessage[playersUpdateMessage](t, b)

	rm.leave(a.id, "disconnected")
	rm.leave(a.id, "disconnected")

	over := expectMessage[gameOverMessage](t, b)
	if over.Reason == "" || !over.ResetGame {
		t.Errorf("unexpected game_over: %+v", over)
	}

	roster := expectMessage[playersUpdateMessage](t, b)
	if len(roster.Players) != 1 || roster.Players[0] != "bob" {
		t.Errorf("roster = %v, want [bob]", roster.Players)
	}

	// A fresh admission proves the seat was released exactly once: the
	// next message bob sees is the new roster, with no duplicate
	// teardown broadcasts in between.
	admitPlayer(t, rm, "carol")

	roster = expectMessage[playersUpdateMessage](t, b)
	if len(roster.Players) != 2 || roster.Players[1] != "carol" {
		t.Errorf("roster = %v, want [bob carol]", roster.Players)
	}
}

func TestValidateName(t *testing.T) {
	if err := validateName(""); !errors.Is(err, errBadName) {
		t.Errorf("empty name: err = %v, want errBadName", err)
	}
	if err := validateName("this-name-is-way-past-twenty-characters"); !errors.Is(err, errBadName) {
		t.Errorf("long name: err = %v, want errBadName", err)
	}
	if err := validateName("alice"); err != nil {
		t.Errorf("valid name: err = %v", err)
	}
}
