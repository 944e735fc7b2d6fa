package room

import (
	"log"
	"sync"

	"duotris/internal/protocol"
)

// Conn is one websocket connection's identity and outbound queue. The
// transport layer drains Outbound into the socket; everything else
// goes through Push, which never blocks game processing.
type Conn struct {
	SessionID  string
	PlayerID   string
	PlayerName string
	State      protocol.PlayerState
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewConn creates a connection in the waiting state.
func NewConn(sessionID, playerID, playerName string) *Conn {
	return &Conn{
		SessionID:  sessionID,
		PlayerID:   playerID,
		PlayerName: playerName,
		send:       make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Outbound is the channel the writer goroutine drains.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Close releases the outbound queue, ending the writer goroutine.
// Idempotent: a connection replaced by a resume is closed by Join and
// again when its socket teardown reaches the hub.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		close(c.send)
	})
}

// Push queues one outbound frame, dropping it if the connection is
// closed or the buffer is full.
func (c *Conn) Push(msgType string, payload any) {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		log.Printf("marshal %s for player %s: %v", msgType, c.PlayerID, err)
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		// drop message if buffer full
	}
}
