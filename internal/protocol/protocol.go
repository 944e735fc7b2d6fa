// Package protocol defines the closed set of messages exchanged with
// game clients. Every frame on the wire is an Envelope; payload shapes
// are fixed per type and unknown types are rejected at decode time
// rather than trusted for field presence.
package protocol

import (
	"encoding/json"
	"fmt"

	"duotris/internal/tetris"
)

// Envelope is the JSON frame for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client → server message types.
const (
	InSetReady       = "setReady"
	InStartGame      = "startGame"
	InMoveDown       = "moveDown"
	InMoveLeft       = "moveLeft"
	InMoveRight      = "moveRight"
	InRotate         = "rotate"
	InCreatedMessage = "createdMessage"
	InQuitGame       = "quitGame"
)

// Server → client message types.
const (
	OutSession          = "session"
	OutMessages         = "messages"
	OutNewState         = "newState"
	OutOtherPlayerState = "newOtherPlayerState"
	OutNewGame          = "newGame"
	OutNewPosition      = "newPosition"
	OutNewMoveDown      = "newMoveDown"
	OutNewMoveLeft      = "newMoveLeft"
	OutNewMoveRight     = "newMoveRight"
	OutNewPoints        = "newPoints"
	OutNewStack         = "newStack"
	OutNewPiece         = "newPiece"
	OutGameWon          = "gameWon"
	OutNewIncomingMsg   = "newIncomingMsg"
	OutRoomIsFull       = "roomIsFull"
	OutResetGame        = "resetGame"
	OutError            = "error"
)

var inboundTypes = map[string]bool{
	InSetReady:       true,
	InStartGame:      true,
	InMoveDown:       true,
	InMoveLeft:       true,
	InMoveRight:      true,
	InRotate:         true,
	InCreatedMessage: true,
	InQuitGame:       true,
}

// Decode parses a raw frame and verifies the type is a known inbound
// message.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed message: %w", err)
	}
	if !inboundTypes[env.Type] {
		return Envelope{}, fmt.Errorf("unknown message type %q", env.Type)
	}
	return env, nil
}

// Marshal builds a wire frame from a type tag and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		p, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = p
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// PlayState is a player's position in the room lifecycle.
type PlayState int

const (
	Waiting PlayState = iota
	Ready
	Playing
	EndGame
)

func (s PlayState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case EndGame:
		return "endgame"
	default:
		return "unknown"
	}
}

// PlayerState is the client-visible per-connection state.
type PlayerState struct {
	Host      bool      `json:"host"`
	PlayState PlayState `json:"playState"`
}

// SetReady toggles the caller's readiness.
type SetReady struct {
	Ready bool `json:"ready"`
}

// Message is one chat entry.
type Message struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

// Session is issued once per connection.
type Session struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

// NewState carries the caller's state and, when relevant, the
// opponent's.
type NewState struct {
	PlayerState      PlayerState  `json:"playerState"`
	OtherPlayerState *PlayerState `json:"otherPlayerState,omitempty"`
}

// NewGame is the round-start snapshot for one player.
type NewGame struct {
	NewStack    tetris.Stack      `json:"newStack"`
	FirstPiece  tetris.PieceState `json:"firstPiece"`
	SecondPiece tetris.PieceState `json:"secondPiece"`
}

// NewStack is the lock-event board and score delta.
type NewStack struct {
	NewStack tetris.Stack `json:"newStack"`
	NewScore int          `json:"newScore"`
}

// NewPiece is the refreshed queue head after a lock.
type NewPiece struct {
	NewCurrentPiece tetris.PieceState `json:"newCurrentPiece"`
	NewNextPiece    tetris.PieceState `json:"newNextPiece"`
}

// Error is surfaced for malformed or unknown frames.
type Error struct {
	Message string `json:"message"`
}
