package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/galafis/roomcast-server/internal/config"
	"github.com/galafis/roomcast-server/internal/store"
)

const maxHistoryLimit = 200

// RoomHandlers provides HTTP handlers for the room catalogue and history.
type RoomHandlers struct {
	store store.Store
	cfg   *config.Config
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, cfg *config.Config, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		cfg:   cfg,
		log:   logger,
	}
}

// RoomResponse represents a catalogued room in API responses.
type RoomResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// MessageResponse represents a stored message in API responses.
type MessageResponse struct {
	Username    string `json:"username"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
	AvatarColor string `json:"avatar_color,omitempty"`
}

// ListRooms returns the public room catalogue.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListPublicRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list rooms failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomResponse{
			Name:        room.Name,
			Description: room.Description,
			CreatedAt:   room.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	c.JSON(http.StatusOK, out)
}

// Messages returns recent message history for a room, oldest first.
// GET /api/messages/:room
func (h *RoomHandlers) Messages(c *gin.Context) {
	room := c.Param("room")

	limit := h.cfg.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	exists, err := h.store.RoomExists(c.Request.Context(), room)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("room lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	messages, err := h.store.RecentMessages(c.Request.Context(), room, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("load history failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, MessageResponse{
			Username:    msg.Username,
			Text:        msg.Text,
			Timestamp:   msg.CreatedAt.Unix(),
			AvatarColor: msg.AvatarColor,
		})
	}
	c.JSON(http.StatusOK, out)
}
