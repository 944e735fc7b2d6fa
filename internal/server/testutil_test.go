package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"duotris/internal/protocol"
	"duotris/internal/room"
	"duotris/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts  *httptest.Server
	hub *room.Hub
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := room.NewHub(store)
	ts := httptest.NewServer(New(hub))
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: hub}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server, query url.Values) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws?" + query.Encode()
}

// wsDial opens a fresh-handshake connection for a room and player name.
// The caller is responsible for closing the connection.
func wsDial(ctx context.Context, t *testing.T, ts *httptest.Server, roomName, playerName string) *websocket.Conn {
	t.Helper()
	q := url.Values{}
	q.Set("room", roomName)
	q.Set("name", playerName)
	conn, _, err := websocket.Dial(ctx, wsURL(ts, q), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	return conn
}

// wsSend marshals and writes one frame, calling t.Fatal on error.
func wsSend(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", msgType, err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("ws write: %v", err)
	}
}

// wsRead reads and unmarshals one frame, calling t.Fatal on error.
func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return env
}

// readUntil discards frames until one of the wanted type arrives.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string) protocol.Envelope {
	t.Helper()
	for i := 0; i < 16; i++ {
		env := wsRead(ctx, t, conn)
		if env.Type == msgType {
			return env
		}
	}
	t.Fatalf("never received %s", msgType)
	return protocol.Envelope{}
}

// readWelcome consumes the fixed handshake sequence (session, messages,
// newState) and returns the parsed state.
func readWelcome(ctx context.Context, t *testing.T, conn *websocket.Conn) protocol.NewState {
	t.Helper()
	env := wsRead(ctx, t, conn)
	if env.Type != protocol.OutSession {
		t.Fatalf("expected session frame, got %q", env.Type)
	}
	env = wsRead(ctx, t, conn)
	if env.Type != protocol.OutMessages {
		t.Fatalf("expected messages frame, got %q", env.Type)
	}
	env = wsRead(ctx, t, conn)
	if env.Type != protocol.OutNewState {
		t.Fatalf("expected newState frame, got %q", env.Type)
	}
	var ns protocol.NewState
	if err := json.Unmarshal(env.Payload, &ns); err != nil {
		t.Fatalf("unmarshal newState: %v", err)
	}
	return ns
}
