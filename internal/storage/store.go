package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SessionRow is one resumable connection identity, keyed by the opaque
// token handed to the client.
type SessionRow struct {
	Token      string
	PlayerID   string
	PlayerName string
	RoomName   string
	Host       bool
	PlayState  int
	UpdatedAt  time.Time
}

// MessageRow is one chat entry in a room's transcript.
type MessageRow struct {
	RoomName  string
	Author    string
	Message   string
	CreatedAt time.Time
}

// Store handles SQLite persistence for sessions and chat messages.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token       TEXT PRIMARY KEY,
			player_id   TEXT NOT NULL,
			player_name TEXT NOT NULL,
			room_name   TEXT NOT NULL,
			host        INTEGER NOT NULL DEFAULT 0,
			play_state  INTEGER NOT NULL DEFAULT 0,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			room_name  TEXT NOT NULL,
			author     TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_room ON sessions(room_name);
		CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_name);
	`)
	return err
}

// SaveSession upserts a session by token.
func (s *Store) SaveSession(row SessionRow) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (token, player_id, player_name, room_name, host, play_state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(token) DO UPDATE SET
			player_id = excluded.player_id,
			player_name = excluded.player_name,
			room_name = excluded.room_name,
			host = excluded.host,
			play_state = excluded.play_state,
			updated_at = excluded.updated_at
	`, row.Token, row.PlayerID, row.PlayerName, row.RoomName, row.Host, row.PlayState)
	return err
}

// FindSession retrieves a session by token.
func (s *Store) FindSession(token string) (*SessionRow, error) {
	row := s.db.QueryRow(`
		SELECT token, player_id, player_name, room_name, host, play_state, updated_at
		FROM sessions WHERE token = ?`, token)
	var sr SessionRow
	if err := row.Scan(&sr.Token, &sr.PlayerID, &sr.PlayerName, &sr.RoomName, &sr.Host, &sr.PlayState, &sr.UpdatedAt); err != nil {
		return nil, err
	}
	return &sr, nil
}

// RemoveSessionsForRoom drops every session bound to a room.
func (s *Store) RemoveSessionsForRoom(roomName string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE room_name = ?", roomName)
	return err
}

// SaveMessage appends a chat message to a room's transcript.
func (s *Store) SaveMessage(roomName, author, message string) error {
	_, err := s.db.Exec(
		"INSERT INTO messages (room_name, author, message) VALUES (?, ?, ?)",
		roomName, author, message,
	)
	return err
}

// MessagesForRoom returns a room's transcript in insertion order.
func (s *Store) MessagesForRoom(roomName string) ([]MessageRow, error) {
	rows, err := s.db.Query(`
		SELECT room_name, author, message, created_at
		FROM messages WHERE room_name = ? ORDER BY id`, roomName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MessageRow
	for rows.Next() {
		var mr MessageRow
		if err := rows.Scan(&mr.RoomName, &mr.Author, &mr.Message, &mr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, mr)
	}
	return result, rows.Err()
}

// RemoveMessagesForRoom drops a room's transcript.
func (s *Store) RemoveMessagesForRoom(roomName string) error {
	_, err := s.db.Exec("DELETE FROM messages WHERE room_name = ?", roomName)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
