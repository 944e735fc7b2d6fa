package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"nhooyr.io/websocket"

	"duotris/internal/protocol"
	"duotris/internal/room"
)

// handleWebSocket performs the handshake (resume by session token, or
// fresh identity from room + name), attaches the connection to its
// room, and runs the read loop. A full room gets an explicit signal
// before the disconnect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionToken := q.Get("session")
	roomName := q.Get("room")
	playerName := q.Get("name")

	// Without a room and name the request must carry a live session
	// token; a stale token is rejected here, before the upgrade.
	if roomName == "" || playerName == "" {
		if sessionToken == "" || !s.hub.Resumable(sessionToken) {
			http.Error(w, "room and name are required", http.StatusBadRequest)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()

	rm, c, err := s.hub.Connect(sessionToken, roomName, playerName)
	switch {
	case errors.Is(err, room.ErrRoomFull):
		if data, merr := protocol.Marshal(protocol.OutRoomIsFull, nil); merr == nil {
			conn.Write(ctx, websocket.MessageText, data)
		}
		conn.Close(websocket.StatusNormalClosure, "room is full")
		return
	case err != nil:
		log.Printf("handshake: %v", err)
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	// Writer goroutine: drain the room's outbound queue to the socket.
	go func() {
		for msg := range c.Outbound() {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop: decode and dispatch until the client goes away.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		env, err := protocol.Decode(data)
		if err != nil {
			log.Printf("room %s player %s: %v", rm.Name(), c.PlayerID, err)
			c.Push(protocol.OutError, protocol.Error{Message: err.Error()})
			continue
		}
		s.dispatch(rm, c, env)
	}

	s.hub.Disconnect(rm, c)
	log.Printf("player %s disconnected from room %s", c.PlayerID, rm.Name())
}

func (s *Server) dispatch(rm *room.Room, c *room.Conn, env protocol.Envelope) {
	switch env.Type {
	case protocol.InSetReady:
		var p protocol.SetReady
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.Push(protocol.OutError, protocol.Error{Message: "invalid setReady payload"})
			return
		}
		rm.HandleSetReady(c, p.Ready)

	case protocol.InStartGame:
		rm.HandleStart(c)

	case protocol.InMoveDown:
		rm.HandleMoveDown(c)

	case protocol.InMoveLeft:
		rm.HandleMoveLeft(c)

	case protocol.InMoveRight:
		rm.HandleMoveRight(c)

	case protocol.InRotate:
		rm.HandleRotate(c)

	case protocol.InCreatedMessage:
		var m protocol.Message
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			c.Push(protocol.OutError, protocol.Error{Message: "invalid message payload"})
			return
		}
		s.hub.SaveChat(rm.Name(), m)
		rm.HandleChat(c, m)

	case protocol.InQuitGame:
		rm.HandleQuit(c)
	}
}
