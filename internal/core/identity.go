package core

// Identity describes an authenticated user as seen by the core layer.
// It is supplied by the auth collaborator at connect time and never
// changes for the lifetime of a connection.
type Identity struct {
	ID          int64
	Username    string
	AvatarColor string
}
