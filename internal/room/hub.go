package room

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"duotris/internal/protocol"
	"duotris/internal/storage"
)

// ErrBadHandshake rejects a connection that has neither a resumable
// session nor a room and player name.
var ErrBadHandshake = errors.New("room and name are required")

// Hub is the game store: it maps room names to live rooms, resumes
// sessions, and garbage-collects a room's state once its last
// connection closes.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room
	store *storage.Store
}

// NewHub creates a hub backed by the given store.
func NewHub(store *storage.Store) *Hub {
	return &Hub{rooms: make(map[string]*Room), store: store}
}

// FindOrCreate returns the room for a name, creating it on first
// reference.
func (h *Hub) FindOrCreate(name string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok {
		r = NewRoom(name)
		h.rooms[name] = r
	}
	return r
}

// Find returns the room for a name if it exists.
func (h *Hub) Find(name string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	return r, ok
}

// RemoveForRoom destroys a room and its persisted session and message
// state.
func (h *Hub) RemoveForRoom(name string) {
	h.mu.Lock()
	delete(h.rooms, name)
	h.mu.Unlock()

	if err := h.store.RemoveSessionsForRoom(name); err != nil {
		log.Printf("remove sessions for room %s: %v", name, err)
	}
	if err := h.store.RemoveMessagesForRoom(name); err != nil {
		log.Printf("remove messages for room %s: %v", name, err)
	}
}

// Rooms returns a snapshot of the live rooms for the tick driver.
func (h *Hub) Rooms() []*Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Resumable reports whether a session token has a stored row. The
// transport checks this before upgrading a request that carries only a
// token.
func (h *Hub) Resumable(token string) bool {
	_, err := h.store.FindSession(token)
	return err == nil
}

// Connect performs the handshake: resume an existing session by token,
// or mint a fresh identity from a room and player name, then attach to
// the room. Returns the room alongside the joined connection.
func (h *Hub) Connect(sessionToken, roomName, playerName string) (*Room, *Conn, error) {
	var c *Conn

	if sessionToken != "" {
		row, err := h.store.FindSession(sessionToken)
		switch {
		case err == nil:
			c = NewConn(row.Token, row.PlayerID, row.PlayerName)
			c.State = protocol.PlayerState{Host: row.Host, PlayState: protocol.PlayState(row.PlayState)}
			roomName = row.RoomName
		case errors.Is(err, sql.ErrNoRows):
			// Stale token; fall through to a fresh handshake.
		default:
			return nil, nil, fmt.Errorf("find session: %w", err)
		}
	}
	if c == nil {
		roomName = strings.TrimSpace(roomName)
		playerName = strings.TrimSpace(playerName)
		if roomName == "" || playerName == "" {
			return nil, nil, ErrBadHandshake
		}
		c = NewConn(uuid.NewString(), uuid.NewString(), playerName)
	}

	r := h.FindOrCreate(roomName)
	c.Push(protocol.OutSession, protocol.Session{SessionID: c.SessionID, PlayerID: c.PlayerID})
	c.Push(protocol.OutMessages, h.Backlog(roomName))
	if err := r.Join(c); err != nil {
		return r, c, err
	}
	return r, c, nil
}

// Disconnect persists the leaving player's session for a later
// reconnect, detaches them, and collects the room once it empties. A
// connection that was already replaced by a resume only closes; the
// live connection owns the player and the session row.
func (h *Hub) Disconnect(r *Room, c *Conn) {
	detached := r.Leave(c)
	c.Close()
	if !detached {
		return
	}

	err := h.store.SaveSession(storage.SessionRow{
		Token:      c.SessionID,
		PlayerID:   c.PlayerID,
		PlayerName: c.PlayerName,
		RoomName:   r.Name(),
		Host:       c.State.Host,
		PlayState:  int(c.State.PlayState),
	})
	if err != nil {
		log.Printf("save session %s: %v", c.SessionID, err)
	}

	if r.Empty() {
		h.RemoveForRoom(r.Name())
	}
}

// SaveChat persists a chat message to the room's transcript.
func (h *Hub) SaveChat(roomName string, msg protocol.Message) {
	if err := h.store.SaveMessage(roomName, msg.Author, msg.Message); err != nil {
		log.Printf("save message in room %s: %v", roomName, err)
	}
}

// Backlog returns a room's chat transcript for a joining client.
func (h *Hub) Backlog(roomName string) []protocol.Message {
	rows, err := h.store.MessagesForRoom(roomName)
	if err != nil {
		log.Printf("load messages for room %s: %v", roomName, err)
		return nil
	}
	msgs := make([]protocol.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, protocol.Message{Author: row.Author, Message: row.Message})
	}
	return msgs
}
