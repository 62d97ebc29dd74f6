package core

import (
	"context"
	"time"

	"github.com/galafis/roomcast-server/internal/store"
)

// Authenticator resolves a connect-time credential into an identity.
// Credential issuance and verification live outside the core; the session
// manager only consumes the result.
type Authenticator interface {
	// Authenticate validates the token and returns the identity it carries.
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// MessageStore abstracts durable message persistence for the session manager.
// The implementation handles its own consistency; a failed append surfaces to
// the sender only and never produces a room-wide effect.
type MessageStore interface {
	// AppendMessage persists one message and returns the stored timestamp.
	AppendMessage(ctx context.Context, room string, userID int64, username, text string) (time.Time, error)

	// RecentMessages returns up to limit recent messages, oldest first.
	RecentMessages(ctx context.Context, room string, limit int) ([]store.Message, error)
}

// RoomCatalogue lists the rooms clients may join. Live membership is tracked
// by the RoomTable independently of this catalogue.
type RoomCatalogue interface {
	// RoomExists reports whether the named room is in the catalogue.
	RoomExists(ctx context.Context, name string) (bool, error)

	// ListPublicRooms returns descriptors for all public rooms.
	ListPublicRooms(ctx context.Context) ([]store.RoomInfo, error)
}
