package tetris

import (
	"math/rand"
	"time"
)

// AlphaMin bounds the randomized alpha channel from below.
const AlphaMin = 150

// palette is the fixed set of piece colors; alpha is drawn per piece.
var palette = []RGBA{
	{R: 235, G: 64, B: 52},
	{R: 52, G: 168, B: 83},
	{R: 66, G: 133, B: 244},
	{R: 251, G: 188, B: 5},
	{R: 155, G: 81, B: 224},
	{R: 26, G: 188, B: 196},
	{R: 244, G: 124, B: 32},
}

// PieceProps is the random draw used to construct a piece: a shape and
// a color.
type PieceProps struct {
	Type  PieceType `json:"type"`
	Color RGBA      `json:"color"`
}

// Game owns the players of one room, the shared pending piece pair and
// the start/reset lifecycle. It is not safe for concurrent use; the
// room holds its mutex across every call.
type Game struct {
	players []*Player
	pending [2]PieceProps
	started bool
	rng     *rand.Rand
}

// NewGame creates an unstarted game with a fresh pending piece pair.
func NewGame() *Game {
	g := &Game{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	g.pending = [2]PieceProps{g.RandomPieceProps(), g.RandomPieceProps()}
	return g
}

// AddPlayer registers a player and seeds their queue from the pending
// pair, so everyone who joins before the start sees the same first two
// pieces. Idempotent: an existing id is returned unchanged.
func (g *Game) AddPlayer(id, name string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	p := NewPlayer(id, name)
	p.Pieces = append(p.Pieces,
		NewPiece(g.pending[0].Type, g.pending[0].Color),
		NewPiece(g.pending[1].Type, g.pending[1].Color),
	)
	g.players = append(g.players, p)
	return p
}

// RemovePlayer drops the player, discarding their board and score.
func (g *Game) RemovePlayer(id string) {
	for i, p := range g.players {
		if p.ID == id {
			g.players = append(g.players[:i], g.players[i+1:]...)
			return
		}
	}
}

// Player looks up a player by id.
func (g *Game) Player(id string) (*Player, bool) {
	for _, p := range g.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Players returns the player list in join order. The tick driver
// iterates this order; do not reorder.
func (g *Game) Players() []*Player {
	return g.players
}

// Opponent returns the other player, if any.
func (g *Game) Opponent(id string) (*Player, bool) {
	for _, p := range g.players {
		if p.ID != id {
			return p, true
		}
	}
	return nil, false
}

// Started reports whether the round is running.
func (g *Game) Started() bool { return g.started }

// Start begins the round. Idempotent.
func (g *Game) Start() { g.started = true }

// Reset returns the game to a fresh unstarted state: players gone,
// new pending pair, ready to be started again in the same room.
func (g *Game) Reset() {
	g.started = false
	g.players = nil
	g.pending = [2]PieceProps{g.RandomPieceProps(), g.RandomPieceProps()}
}

// RandomPieceProps draws a uniform-random shape and a palette color
// with a randomized alpha.
func (g *Game) RandomPieceProps() PieceProps {
	color := palette[g.rng.Intn(len(palette))]
	color.A = uint8(g.rng.Intn(256-AlphaMin) + AlphaMin)
	return PieceProps{
		Type:  PieceTypes[g.rng.Intn(len(PieceTypes))],
		Color: color,
	}
}

// PushPiece appends a piece built from props to every player's queue,
// keeping look-ahead depth synchronized across the room.
func (g *Game) PushPiece(props PieceProps) {
	for _, p := range g.players {
		p.Pieces = append(p.Pieces, NewPiece(props.Type, props.Color))
	}
}

// Score maps lines cleared in one placement to points.
func Score(lines int) int {
	switch lines {
	case 1:
		return 40
	case 2:
		return 100
	case 3:
		return 300
	case 4:
		return 1200
	default:
		return 0
	}
}

// AddToScore accumulates the score for a clear into the player's total
// and returns the new total.
func (g *Game) AddToScore(lines int, playerID string) int {
	p, ok := g.Player(playerID)
	if !ok {
		return 0
	}
	p.Score += Score(lines)
	return p.Score
}
