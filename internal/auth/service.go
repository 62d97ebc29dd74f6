package auth

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/galafis/roomcast-server/internal/core"
	"github.com/galafis/roomcast-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering an existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// avatarColors is the palette new accounts draw from; the pick is a stable
// function of the username.
var avatarColors = []string{
	"#667eea", "#764ba2", "#f093fb", "#f5576c", "#4facfe", "#43e97b",
}

// Service provides authentication operations. It also acts as the core's
// auth collaborator, resolving handshake tokens into identities.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user with a hashed password and returns a JWT token.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return "", ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, email, hashedPassword, AvatarColorFor(username))
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials, bumps last_seen, and returns a JWT token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	if err := s.store.TouchLastSeen(ctx, user.ID); err != nil {
		return "", fmt.Errorf("touch last_seen: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// ValidateToken parses and validates a JWT token issued by this service.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Authenticate resolves a handshake token into a core identity. It
// implements core.Authenticator.
func (s *Service) Authenticate(ctx context.Context, token string) (core.Identity, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return core.Identity{}, ErrInvalidCredentials
	}

	// The avatar color lives in the store, not the token; fetch the account
	// so renamed or recolored users get current data.
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return core.Identity{}, ErrInvalidCredentials
	}

	return core.Identity{
		ID:          user.ID,
		Username:    user.Username,
		AvatarColor: user.AvatarColor,
	}, nil
}

// AvatarColorFor deterministically picks a palette color for a username.
func AvatarColorFor(username string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return avatarColors[h.Sum32()%uint32(len(avatarColors))]
}
