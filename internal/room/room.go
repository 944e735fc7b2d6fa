package room

import (
	"errors"
	"log"
	"sync"

	"duotris/internal/protocol"
	"duotris/internal/tetris"
)

// ErrRoomFull rejects a third distinct connection; spectating is not a
// thing.
var ErrRoomFull = errors.New("room is full")

const maxConns = 2

// Room binds a named match context to exactly one Game and at most two
// connections. The mutex is held for the whole of one inbound message
// or one tick, so game logic never interleaves within a room.
type Room struct {
	mu    sync.Mutex
	name  string
	game  *tetris.Game
	conns []*Conn // join order; conns[0] is the host
}

// NewRoom creates a room with a fresh game.
func NewRoom(name string) *Room {
	return &Room{name: name, game: tetris.NewGame()}
}

func (r *Room) Name() string { return r.name }

// Game exposes the aggregate for tests and the hub. Callers outside a
// handler must not mutate it.
func (r *Room) Game() *tetris.Game { return r.game }

// Join attaches a connection. A reconnect (same player id) replaces the
// stale connection; a third distinct player is rejected.
func (r *Room) Join(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.conns {
		if existing.PlayerID == c.PlayerID {
			existing.Close()
			r.conns[i] = c
			r.recomputeHostLocked()
			c.Push(protocol.OutNewState, protocol.NewState{PlayerState: c.State})
			return nil
		}
	}
	if len(r.conns) >= maxConns {
		return ErrRoomFull
	}
	r.conns = append(r.conns, c)
	r.recomputeHostLocked()
	c.Push(protocol.OutNewState, protocol.NewState{PlayerState: c.State})
	return nil
}

// Leave detaches a connection and drops its player from the game. The
// board and score go with the player; only the session row survives for
// a reconnect. Reports whether the connection was actually registered:
// a stale connection that was already replaced by a resume must not
// take the live player's state with it.
func (r *Room) Leave(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	detached := false
	for i, existing := range r.conns {
		if existing == c {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			detached = true
			break
		}
	}
	if !detached {
		return false
	}
	r.game.RemovePlayer(c.PlayerID)
	for _, promoted := range r.recomputeHostLocked() {
		promoted.Push(protocol.OutNewState, protocol.NewState{PlayerState: promoted.State})
	}
	return true
}

// Empty reports whether no connections remain.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) == 0
}

// Conns returns a snapshot of the connections in join order.
func (r *Room) Conns() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Conn(nil), r.conns...)
}

// recomputeHostLocked keeps exactly one host: the earliest remaining
// connection. Connections mid-round (playing or endgame) keep whatever
// host flag they had. Returns the connections whose flag changed.
func (r *Room) recomputeHostLocked() []*Conn {
	var changed []*Conn
	for i, c := range r.conns {
		if c.State.PlayState == protocol.Playing || c.State.PlayState == protocol.EndGame {
			continue
		}
		host := i == 0
		if c.State.Host != host {
			c.State.Host = host
			changed = append(changed, c)
		}
	}
	return changed
}

func (r *Room) connForLocked(playerID string) *Conn {
	for _, c := range r.conns {
		if c.PlayerID == playerID {
			return c
		}
	}
	return nil
}

func (r *Room) othersLocked(c *Conn) []*Conn {
	var out []*Conn
	for _, other := range r.conns {
		if other != c {
			out = append(out, other)
		}
	}
	return out
}

// HandleSetReady toggles the caller's readiness. Ready adds them to the
// game (idempotently, seeded with the shared pending pair); unready
// removes them.
func (r *Room) HandleSetReady(c *Conn, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ready {
		r.game.AddPlayer(c.PlayerID, c.PlayerName)
		c.State.PlayState = protocol.Ready
	} else {
		r.game.RemovePlayer(c.PlayerID)
		c.State.PlayState = protocol.Waiting
	}
	c.Push(protocol.OutNewState, protocol.NewState{PlayerState: c.State})
	for _, other := range r.othersLocked(c) {
		other.Push(protocol.OutOtherPlayerState, c.State)
	}
}

// HandleStart begins the round. Host only; a non-host start is dropped
// with a log. Idempotent on an already-started game, but still syncs
// every player's initial snapshot.
func (r *Room) HandleStart(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.State.Host {
		log.Printf("room %s: non-host %s tried to start", r.name, c.PlayerID)
		return
	}
	r.game.AddPlayer(c.PlayerID, c.PlayerName)
	r.game.Start()

	for _, p := range r.game.Players() {
		conn := r.connForLocked(p.ID)
		if conn == nil {
			continue
		}
		if conn.State.Host || conn.State.PlayState == protocol.Ready {
			conn.State.PlayState = protocol.Playing
			conn.Push(protocol.OutNewState, protocol.NewState{PlayerState: conn.State})
		}
		first, second := p.CurrentPiece(), p.NextPiece()
		if first == nil || second == nil {
			continue
		}
		conn.Push(protocol.OutNewGame, protocol.NewGame{
			NewStack:    p.Stack,
			FirstPiece:  first.State(),
			SecondPiece: second.State(),
		})
	}

	// Each side learns the opponent's state at the starting line.
	for _, conn := range r.conns {
		for _, other := range r.othersLocked(conn) {
			conn.Push(protocol.OutOtherPlayerState, other.State)
		}
	}
}

// HandleMoveDown is the voluntary soft drop.
func (r *Room) HandleMoveDown(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, piece := r.currentPieceLocked(c)
	if piece == nil {
		return
	}
	piece.Down(p.Stack)
	c.Push(protocol.OutNewMoveDown, piece.Y())
}

// HandleMoveLeft nudges the piece one tile left.
func (r *Room) HandleMoveLeft(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, piece := r.currentPieceLocked(c)
	if piece == nil {
		return
	}
	piece.SetX(piece.X()-tetris.Step, p.Stack)
	c.Push(protocol.OutNewMoveLeft, piece.X())
}

// HandleMoveRight nudges the piece one tile right.
func (r *Room) HandleMoveRight(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, piece := r.currentPieceLocked(c)
	if piece == nil {
		return
	}
	piece.SetX(piece.X()+tetris.Step, p.Stack)
	c.Push(protocol.OutNewMoveRight, piece.X())
}

// HandleRotate rotates the piece; the client only hears back when the
// rotation took.
func (r *Room) HandleRotate(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, piece := r.currentPieceLocked(c)
	if piece == nil {
		return
	}
	if piece.Rotate(p.Stack) {
		c.Push(protocol.OutNewPoints, piece.Points())
	}
}

// HandleChat rebroadcasts a chat message to the rest of the room.
// Persistence happens in the hub.
func (r *Room) HandleChat(c *Conn, msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.othersLocked(c) {
		other.Push(protocol.OutNewIncomingMsg, msg)
	}
}

// HandleQuit returns the caller to the waiting state and tells their
// client to reset its board.
func (r *Room) HandleQuit(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Push(protocol.OutResetGame, nil)
	c.State.PlayState = protocol.Waiting
	c.Push(protocol.OutNewState, protocol.NewState{PlayerState: c.State})
	for _, other := range r.othersLocked(c) {
		other.Push(protocol.OutOtherPlayerState, c.State)
	}
}

// currentPieceLocked resolves the caller's player and current piece.
// A missing player means the room mutated under the caller's feet; the
// request is dropped with a log, never an error to the client.
func (r *Room) currentPieceLocked(c *Conn) (*tetris.Player, *tetris.Piece) {
	p, ok := r.game.Player(c.PlayerID)
	if !ok {
		log.Printf("room %s: no player %s for move", r.name, c.PlayerID)
		return nil, nil
	}
	piece := p.CurrentPiece()
	if piece == nil {
		log.Printf("room %s: player %s has no current piece", r.name, c.PlayerID)
		return nil, nil
	}
	return p, piece
}

// Tick advances gravity for every player, in list order. A top-out by
// one player ends the round for the whole room immediately; remaining
// players this tick are skipped by design.
func (r *Room) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.game.Started() {
		return
	}
	for _, p := range r.game.Players() {
		piece := p.CurrentPiece()
		if piece == nil || piece.Disabled() {
			continue
		}
		conn := r.connForLocked(p.ID)

		// Optimistic update first, then the authoritative advance.
		newY := piece.Y() + tetris.Step
		if conn != nil {
			conn.Push(protocol.OutNewPosition, newY)
		}
		piece.SetY(newY, p.Stack)
		if piece.Active() {
			continue
		}

		if piece.Y() == 0 {
			// Locked on the spawn row: top-out.
			r.endRoundLocked(p)
			return
		}

		piece.Disable()
		p.Stack.Commit(piece)
		lines := p.Stack.ClearFullRows()
		score := r.game.AddToScore(lines, p.ID)
		if conn != nil {
			conn.Push(protocol.OutNewStack, protocol.NewStack{NewStack: p.Stack, NewScore: score})
		}

		p.PopPiece()
		if len(p.Pieces) == 1 {
			// Refill every queue in lock-step so look-ahead depth stays
			// synchronized across the room.
			r.game.PushPiece(r.game.RandomPieceProps())
		}
		current, next := p.CurrentPiece(), p.NextPiece()
		if conn != nil && current != nil && next != nil {
			conn.Push(protocol.OutNewPiece, protocol.NewPiece{
				NewCurrentPiece: current.State(),
				NewNextPiece:    next.State(),
			})
		}
	}
}

// endRoundLocked settles a top-out: the loser and the opponent both go
// to endgame, the winner hears the good news, and the game resets for
// a rematch.
func (r *Room) endRoundLocked(loser *tetris.Player) {
	loserConn := r.connForLocked(loser.ID)
	var winnerConn *Conn
	if opp, ok := r.game.Opponent(loser.ID); ok {
		winnerConn = r.connForLocked(opp.ID)
	}

	if loserConn != nil {
		loserConn.State.PlayState = protocol.EndGame
	}
	if winnerConn != nil {
		winnerConn.State.PlayState = protocol.EndGame
		winnerConn.Push(protocol.OutGameWon, nil)
		var other *protocol.PlayerState
		if loserConn != nil {
			s := loserConn.State
			other = &s
		}
		winnerConn.Push(protocol.OutNewState, protocol.NewState{PlayerState: winnerConn.State, OtherPlayerState: other})
	}
	if loserConn != nil {
		var other *protocol.PlayerState
		if winnerConn != nil {
			s := winnerConn.State
			other = &s
		}
		loserConn.Push(protocol.OutNewState, protocol.NewState{PlayerState: loserConn.State, OtherPlayerState: other})
	}
	r.game.Reset()
}
