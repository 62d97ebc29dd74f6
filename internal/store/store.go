package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AvatarColor  string
	CreatedAt    time.Time
	LastSeen     time.Time
}

// RoomInfo describes a catalogued chat room.
type RoomInfo struct {
	Name        string
	Description string
	CreatedAt   time.Time
}

// Message is a persisted chat message.
type Message struct {
	ID          int64
	Room        string
	UserID      int64
	Username    string
	Text        string
	Type        string
	AvatarColor string
	CreatedAt   time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new account with an already-hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash, avatarColor string) (*User, error)

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// TouchLastSeen bumps the user's last_seen timestamp.
	TouchLastSeen(ctx context.Context, id int64) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists one message and returns the stored timestamp.
	AppendMessage(ctx context.Context, room string, userID int64, username, text string) (time.Time, error)

	// RecentMessages returns up to limit recent room messages, oldest first.
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)
}

// RoomCatalogue handles the fixed room catalogue. Live membership is the
// core's concern, never the catalogue's.
type RoomCatalogue interface {
	// RoomExists reports whether the named room is catalogued.
	RoomExists(ctx context.Context, name string) (bool, error)

	// CreateRoom adds a room to the catalogue.
	CreateRoom(ctx context.Context, name, description string, createdBy int64) (*RoomInfo, error)

	// ListPublicRooms returns all non-private rooms, oldest first.
	ListPublicRooms(ctx context.Context) ([]RoomInfo, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	RoomCatalogue

	// Close closes the underlying database connection.
	Close() error
}
