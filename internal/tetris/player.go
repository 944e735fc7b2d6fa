package tetris

// Player is one side of a match: a board, a score, and the look-ahead
// piece queue (current + next, briefly three right after a refill).
// The stack is owned exclusively by this player; only the Game and the
// tick driver mutate it on the player's behalf.
type Player struct {
	ID     string
	Name   string
	Score  int
	Stack  Stack
	Pieces []*Piece
}

// NewPlayer creates a player with an empty board and no pieces; the
// Game seeds the queue when the player is added.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Stack: NewStack(),
	}
}

// CurrentPiece returns the piece under the player's control, or nil if
// the queue is empty.
func (p *Player) CurrentPiece() *Piece {
	if len(p.Pieces) == 0 {
		return nil
	}
	return p.Pieces[0]
}

// NextPiece returns the look-ahead piece, or nil.
func (p *Player) NextPiece() *Piece {
	if len(p.Pieces) < 2 {
		return nil
	}
	return p.Pieces[1]
}

// PopPiece drops the current piece from the queue.
func (p *Player) PopPiece() {
	if len(p.Pieces) > 0 {
		p.Pieces = p.Pieces[1:]
	}
}
