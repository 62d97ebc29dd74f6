package core

import "errors"

// Error codes for domain errors surfaced to clients.
const (
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeNotInRoom    = "not_in_room"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeStoreFailed  = "store_failed"
)

var (
	// ErrAlreadyRegistered is returned when a connection id is registered twice.
	ErrAlreadyRegistered = errors.New("connection already registered")
	// ErrSlowConsumer is returned by Conn.Send when the outbound buffer is full.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrConnClosed is returned by Conn.Send after the connection was closed.
	ErrConnClosed = errors.New("connection closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
