package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/galafis/roomcast-server/internal/config"
	"github.com/galafis/roomcast-server/internal/core"
	"github.com/galafis/roomcast-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to the session manager.
type WSHandler struct {
	sessions *core.Sessions
	cfg      *config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(sessions *core.Sessions, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{sessions: sessions, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer sock.Close(websocket.StatusInternalError, "internal error")

	conn := newWSConn(h.cfg.SendBuffer)
	if _, err := h.sessions.Connect(ctx, conn, bearerToken(r)); err != nil {
		h.log.Warn().Err(err).Msg("ws auth failed")
		sock.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}
	defer h.sessions.Disconnect(conn.ID())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, sock, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, sock, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	sock.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, sock *websocket.Conn, conn *wsConn) error {
	limiter := newRateLimiter(h.cfg.MsgRateLimit)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, sock, &inbound); err != nil {
			return err
		}

		if inbound.Type == proto.InboundTypeMsg && !limiter.allow() {
			if err := wsjson.Write(ctx, sock, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: "rate_limited", Msg: "too many messages"},
			}); err != nil {
				return err
			}
			continue
		}

		protoErr, err := h.dispatch(ctx, conn.ID(), inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, sock, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, sock *websocket.Conn, conn *wsConn) error {
	for {
		select {
		case event := <-conn.events:
			if err := wsjson.Write(ctx, sock, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("write ws event")
				return err
			}
		case <-conn.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// bearerToken pulls the handshake credential from the Authorization header
// or, for browser clients that cannot set headers on websockets, the token
// query parameter.
func bearerToken(r *stdhttp.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
	}
	return r.URL.Query().Get("token")
}
