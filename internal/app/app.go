package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/galafis/roomcast-server/internal/auth"
	"github.com/galafis/roomcast-server/internal/config"
	"github.com/galafis/roomcast-server/internal/core"
	"github.com/galafis/roomcast-server/internal/store"
	"github.com/galafis/roomcast-server/internal/store/sqlite"
	transporthttp "github.com/galafis/roomcast-server/internal/transport/http"
)

// App wires together store, auth, core, and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	sessions        *core.Sessions
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn().Msg("jwt secret not configured; generated an ephemeral one, tokens will not survive a restart")
	}
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(secret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := core.NewPresenceRegistry()
	rooms := core.NewRoomTable()
	broadcast := core.NewBroadcastEngine(rooms, registry, logger)
	typing := core.NewTypingCoordinator(broadcast)
	sessions := core.NewSessions(registry, rooms, broadcast, typing, authService, st, st, core.SessionsConfig{
		TypingTTL:     cfg.TypingTTL,
		MaxMessageLen: cfg.MaxMessageLen,
		HistoryLimit:  cfg.HistoryLimit,
	}, logger)

	server := transporthttp.NewServer(sessions, authService, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		sessions:        sessions,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.sessions.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}
