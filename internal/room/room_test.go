package room

import (
	"encoding/json"
	"testing"

	"duotris/internal/protocol"
	"duotris/internal/tetris"
)

// drain pulls every queued frame off a connection's outbound channel.
func drain(t *testing.T, c *Conn) []protocol.Envelope {
	t.Helper()
	var out []protocol.Envelope
	for {
		select {
		case data := <-c.Outbound():
			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("unmarshal frame: %v", err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func hasType(envs []protocol.Envelope, msgType string) bool {
	for _, env := range envs {
		if env.Type == msgType {
			return true
		}
	}
	return false
}

func joinTwo(t *testing.T, r *Room) (*Conn, *Conn) {
	t.Helper()
	c1 := NewConn("s1", "p1", "alice")
	c2 := NewConn("s2", "p2", "bob")
	if err := r.Join(c1); err != nil {
		t.Fatalf("join c1: %v", err)
	}
	if err := r.Join(c2); err != nil {
		t.Fatalf("join c2: %v", err)
	}
	return c1, c2
}

// startRound readies the guest and starts as the host, then clears both
// outbound queues so tests see only what follows.
func startRound(t *testing.T, r *Room, host, guest *Conn) {
	t.Helper()
	r.HandleSetReady(guest, true)
	r.HandleStart(host)
	if !r.Game().Started() {
		t.Fatal("expected game to be started")
	}
	drain(t, host)
	drain(t, guest)
}

func TestJoinAssignsHostToFirst(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)

	if !c1.State.Host {
		t.Fatal("expected first connection to be host")
	}
	if c2.State.Host {
		t.Fatal("expected second connection to not be host")
	}
	if !hasType(drain(t, c1), protocol.OutNewState) {
		t.Fatal("expected newState for first connection")
	}
}

func TestJoinRejectsThirdConnection(t *testing.T) {
	r := NewRoom("room1")
	joinTwo(t, r)

	c3 := NewConn("s3", "p3", "carol")
	if err := r.Join(c3); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if len(r.Conns()) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(r.Conns()))
	}
}

func TestJoinReconnectReplacesStaleConn(t *testing.T) {
	r := NewRoom("room1")
	c1 := NewConn("s1", "p1", "alice")
	if err := r.Join(c1); err != nil {
		t.Fatalf("join: %v", err)
	}

	again := NewConn("s1", "p1", "alice")
	if err := r.Join(again); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	conns := r.Conns()
	if len(conns) != 1 {
		t.Fatalf("expected 1 connection after reconnect, got %d", len(conns))
	}
	if conns[0] != again {
		t.Fatal("expected the fresh connection to replace the stale one")
	}
}

func TestLeaveReplacedConnIsNoOp(t *testing.T) {
	r := NewRoom("room1")
	c1 := NewConn("s1", "p1", "alice")
	if err := r.Join(c1); err != nil {
		t.Fatalf("join: %v", err)
	}
	again := NewConn("s1", "p1", "alice")
	if err := r.Join(again); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	r.HandleSetReady(again, true)

	// The replaced connection's teardown must not touch the live
	// player's state.
	if r.Leave(c1) {
		t.Fatal("expected no detach for a replaced connection")
	}
	if _, ok := r.Game().Player("p1"); !ok {
		t.Fatal("live player must survive the stale teardown")
	}
	conns := r.Conns()
	if len(conns) != 1 || conns[0] != again {
		t.Fatalf("expected the live connection to stay registered, got %v", conns)
	}
}

func TestConnCloseIdempotent(t *testing.T) {
	c := NewConn("s1", "p1", "alice")
	c.Close()
	c.Close()

	// A frame pushed after close is silently dropped.
	c.Push(protocol.OutGameWon, nil)
}

func TestLeaveReassignsHost(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	drain(t, c2)

	r.Leave(c1)
	if !c2.State.Host {
		t.Fatal("expected remaining connection to become host")
	}
	if !hasType(drain(t, c2), protocol.OutNewState) {
		t.Fatal("expected newState announcing the promotion")
	}
}

func TestSetReadyIdempotent(t *testing.T) {
	r := NewRoom("room1")
	c1, _ := joinTwo(t, r)

	r.HandleSetReady(c1, true)
	r.HandleSetReady(c1, true)

	if n := len(r.Game().Players()); n != 1 {
		t.Fatalf("expected 1 player after double ready, got %d", n)
	}
	if c1.State.PlayState != protocol.Ready {
		t.Fatalf("expected ready state, got %v", c1.State.PlayState)
	}
}

func TestSetReadyFalseRemovesPlayer(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	drain(t, c2)

	r.HandleSetReady(c1, true)
	r.HandleSetReady(c1, false)

	if n := len(r.Game().Players()); n != 0 {
		t.Fatalf("expected 0 players, got %d", n)
	}
	if c1.State.PlayState != protocol.Waiting {
		t.Fatalf("expected waiting state, got %v", c1.State.PlayState)
	}
	if !hasType(drain(t, c2), protocol.OutOtherPlayerState) {
		t.Fatal("expected opponent to hear about the toggle")
	}
}

func TestStartRequiresHost(t *testing.T) {
	r := NewRoom("room1")
	_, c2 := joinTwo(t, r)

	r.HandleStart(c2)
	if r.Game().Started() {
		t.Fatal("guest must not be able to start the game")
	}
}

func TestStartTransitionsPlayersToPlaying(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	r.HandleSetReady(c2, true)
	drain(t, c1)
	drain(t, c2)

	r.HandleStart(c1)

	if !r.Game().Started() {
		t.Fatal("expected started game")
	}
	if c1.State.PlayState != protocol.Playing || c2.State.PlayState != protocol.Playing {
		t.Fatalf("expected both playing, got %v and %v", c1.State.PlayState, c2.State.PlayState)
	}
	for name, c := range map[string]*Conn{"host": c1, "guest": c2} {
		envs := drain(t, c)
		if !hasType(envs, protocol.OutNewGame) {
			t.Fatalf("expected newGame for %s", name)
		}
		if !hasType(envs, protocol.OutOtherPlayerState) {
			t.Fatalf("expected newOtherPlayerState for %s", name)
		}
	}
}

func TestMoveHandlers(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	startRound(t, r, c1, c2)

	p, _ := r.Game().Player("p1")
	startX := p.CurrentPiece().X()

	r.HandleMoveLeft(c1)
	if got := p.CurrentPiece().X(); got != startX-tetris.Step {
		t.Fatalf("expected x %d after left, got %d", startX-tetris.Step, got)
	}
	r.HandleMoveRight(c1)
	if got := p.CurrentPiece().X(); got != startX {
		t.Fatalf("expected x %d after right, got %d", startX, got)
	}
	r.HandleMoveDown(c1)
	if got := p.CurrentPiece().Y(); got != tetris.Step {
		t.Fatalf("expected y %d after down, got %d", tetris.Step, got)
	}

	envs := drain(t, c1)
	for _, want := range []string{protocol.OutNewMoveLeft, protocol.OutNewMoveRight, protocol.OutNewMoveDown} {
		if !hasType(envs, want) {
			t.Fatalf("expected %s acknowledgement", want)
		}
	}
}

func TestMoveWithoutPlayerIsDropped(t *testing.T) {
	r := NewRoom("room1")
	c1, _ := joinTwo(t, r)

	// Never readied: no player record. The request must vanish without
	// a crash or a client-visible error.
	r.HandleMoveLeft(c1)
	if hasType(drain(t, c1), protocol.OutError) {
		t.Fatal("illegal move must not surface an error")
	}
}

func TestQuitReturnsToWaiting(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	startRound(t, r, c1, c2)

	r.HandleQuit(c2)
	if c2.State.PlayState != protocol.Waiting {
		t.Fatalf("expected waiting, got %v", c2.State.PlayState)
	}
	if !hasType(drain(t, c2), protocol.OutResetGame) {
		t.Fatal("expected resetGame signal")
	}
	if !hasType(drain(t, c1), protocol.OutOtherPlayerState) {
		t.Fatal("expected opponent update")
	}
}

func TestChatRebroadcast(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	drain(t, c1)
	drain(t, c2)

	r.HandleChat(c1, protocol.Message{Author: "alice", Message: "hi"})

	if hasType(drain(t, c1), protocol.OutNewIncomingMsg) {
		t.Fatal("sender must not receive their own message back")
	}
	if !hasType(drain(t, c2), protocol.OutNewIncomingMsg) {
		t.Fatal("expected rebroadcast to the opponent")
	}
}

func TestTickAdvancesPieces(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	startRound(t, r, c1, c2)

	r.Tick()

	for _, id := range []string{"p1", "p2"} {
		p, ok := r.Game().Player(id)
		if !ok {
			t.Fatalf("missing player %s", id)
		}
		if got := p.CurrentPiece().Y(); got != tetris.Step {
			t.Fatalf("player %s: expected y %d, got %d", id, tetris.Step, got)
		}
	}
	if !hasType(drain(t, c1), protocol.OutNewPosition) {
		t.Fatal("expected newPosition for host")
	}
	if !hasType(drain(t, c2), protocol.OutNewPosition) {
		t.Fatal("expected newPosition for guest")
	}
}

func TestTickIgnoresUnstartedRoom(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	r.HandleSetReady(c2, true)
	drain(t, c1)
	drain(t, c2)

	r.Tick()

	if envs := drain(t, c2); len(envs) != 0 {
		t.Fatalf("expected no frames for unstarted room, got %v", envs)
	}
}

func TestTickLocksCommitsAndRefills(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	startRound(t, r, c1, c2)

	// More than enough ticks for the first piece to reach the floor
	// and lock, regardless of its shape.
	for i := 0; i < 21; i++ {
		r.Tick()
	}

	for _, id := range []string{"p1", "p2"} {
		p, _ := r.Game().Player(id)
		if n := len(p.Pieces); n != 2 {
			t.Fatalf("player %s: expected queue depth 2 after refill, got %d", id, n)
		}
		filled := 0
		for _, cell := range p.Stack {
			if cell.Filled {
				filled++
			}
		}
		if filled != 4 {
			t.Fatalf("player %s: expected 4 committed cells, got %d", id, filled)
		}
		if p.Score != 0 {
			t.Fatalf("player %s: expected no score without a clear, got %d", id, p.Score)
		}
	}

	envs := drain(t, c1)
	if !hasType(envs, protocol.OutNewStack) {
		t.Fatal("expected newStack after the lock")
	}
	if !hasType(envs, protocol.OutNewPiece) {
		t.Fatal("expected newPiece after the lock")
	}
}

func TestTickTopOutEndsRound(t *testing.T) {
	r := NewRoom("room1")
	c1, c2 := joinTwo(t, r)
	startRound(t, r, c1, c2)

	// The guest readied first, so their player is first in tick order.
	// Wall off the rows under the spawn so the first advance collides
	// while the piece is still on the spawn row.
	loser, _ := r.Game().Player("p2")
	for row := 1; row <= 5; row++ {
		for col := 0; col < tetris.Cols; col++ {
			loser.Stack[row*tetris.Cols+col].Filled = true
		}
	}

	r.Tick()

	if c1.State.PlayState != protocol.EndGame || c2.State.PlayState != protocol.EndGame {
		t.Fatalf("expected both endgame, got %v and %v", c1.State.PlayState, c2.State.PlayState)
	}
	if r.Game().Started() {
		t.Fatal("expected game reset after top-out")
	}
	if n := len(r.Game().Players()); n != 0 {
		t.Fatalf("expected empty player list after reset, got %d", n)
	}

	winnerFrames := drain(t, c1)
	if !hasType(winnerFrames, protocol.OutGameWon) {
		t.Fatal("expected gameWon for the surviving player")
	}
	if hasType(winnerFrames, protocol.OutNewPosition) {
		t.Fatal("players after a top-out must be skipped for the rest of the tick")
	}
	if !hasType(drain(t, c2), protocol.OutNewState) {
		t.Fatal("expected newState for the losing player")
	}
}
