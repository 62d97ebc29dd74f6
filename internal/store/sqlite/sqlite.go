package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/galafis/roomcast-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar_color  TEXT NOT NULL DEFAULT '#667eea',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_rooms (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	room_name        TEXT NOT NULL UNIQUE,
	room_description TEXT,
	created_by       INTEGER REFERENCES users(id),
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_private       BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	room_name    TEXT NOT NULL,
	user_id      INTEGER NOT NULL REFERENCES users(id),
	username     TEXT NOT NULL,
	message      TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'text',
	timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_name, id);

INSERT OR IGNORE INTO chat_rooms (room_name, room_description)
VALUES ('general', 'General discussion room');
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new account with an already-hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash, avatarColor string) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, avatar_color)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash, avatarColor)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, avatar_color, created_at, last_seen
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, avatar_color, created_at, last_seen
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// TouchLastSeen bumps the user's last_seen timestamp.
func (s *SQLiteStore) TouchLastSeen(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_seen = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AvatarColor, &u.CreatedAt, &u.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists one message and returns the stored timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, room string, userID int64, username, text string) (time.Time, error) {
	ts := time.Now().UTC()
	query := `
		INSERT INTO messages (room_name, user_id, username, message, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, room, userID, username, text, ts); err != nil {
		return time.Time{}, fmt.Errorf("insert message: %w", err)
	}
	return ts, nil
}

// RecentMessages returns up to limit recent room messages, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, room string, limit int) ([]store.Message, error) {
	query := `
		SELECT m.id, m.room_name, m.user_id, m.username, m.message, m.message_type, m.timestamp,
		       COALESCE(u.avatar_color, '#667eea')
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.room_name = ?
		ORDER BY m.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.Room, &m.UserID, &m.Username, &m.Text, &m.Type, &m.CreatedAt, &m.AvatarColor); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// The query walks newest-first; callers want oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ==== RoomCatalogue implementation ====

// RoomExists reports whether the named room is catalogued.
func (s *SQLiteStore) RoomExists(ctx context.Context, name string) (bool, error) {
	query := `SELECT 1 FROM chat_rooms WHERE room_name = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query room: %w", err)
	}
	return true, nil
}

// CreateRoom adds a room to the catalogue.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, description string, createdBy int64) (*store.RoomInfo, error) {
	query := `
		INSERT INTO chat_rooms (room_name, room_description, created_by)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, name, description, createdBy); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	var info store.RoomInfo
	var desc sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT room_name, room_description, created_at FROM chat_rooms WHERE room_name = ?`, name)
	if err := row.Scan(&info.Name, &desc, &info.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan room: %w", err)
	}
	info.Description = desc.String
	return &info, nil
}

// ListPublicRooms returns all non-private rooms, oldest first.
func (s *SQLiteStore) ListPublicRooms(ctx context.Context) ([]store.RoomInfo, error) {
	query := `
		SELECT room_name, room_description, created_at
		FROM chat_rooms
		WHERE is_private = 0
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var out []store.RoomInfo
	for rows.Next() {
		var info store.RoomInfo
		var desc sql.NullString
		if err := rows.Scan(&info.Name, &desc, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		info.Description = desc.String
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return out, nil
}
