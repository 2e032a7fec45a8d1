package handler

//go:generate mockgen -destination=mock_room_services.go -package=handler live-auction/services/bidding/handler PresenceCounter,ChatServiceInterface

import (
	"context"
	"net/http"
	"strconv"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
	"live-auction/services/bidding/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

const defaultChatLimit = 50

type PresenceCounter interface {
	Count(ctx context.Context, roomID string) (int, error)
}

type ChatServiceInterface interface {
	Send(ctx context.Context, roomID, sessionID, text string) (models.ChatMessage, error)
	Recent(ctx context.Context, roomID string, n int) ([]models.ChatMessage, error)
}

type RoomHandler struct {
	presence PresenceCounter
	chat     ChatServiceInterface
}

func NewRoomHandler(presence PresenceCounter, chat ChatServiceInterface) *RoomHandler {
	return &RoomHandler{presence: presence, chat: chat}
}

// ViewerCountHandler handles GET /rooms/:room_id/viewers/count
func (h *RoomHandler) ViewerCountHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	n, err := h.presence.Count(c.Request.Context(), roomID)
	if err != nil {
		helpers.RespondError(c, "ViewerCountHandler", err, map[string]any{"room_id": roomID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ViewerCountResponse{RoomID: roomID, Count: n}, "viewer count retrieved successfully")
}

// SendChatHandler handles POST /rooms/:room_id/chat
func (h *RoomHandler) SendChatHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SendChatHandler", err)
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), roomID, req.SessionID, req.Text)
	if err != nil {
		helpers.RespondError(c, "SendChatHandler", err, map[string]any{"room_id": roomID, "session_id": req.SessionID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, msg, "message sent successfully")
	helpers.LogSuccess("SendChatHandler", "message sent successfully", map[string]any{"room_id": roomID, "user": msg.User})
}

// RecentChatHandler handles GET /rooms/:room_id/chat?limit=N
func (h *RoomHandler) RecentChatHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	limit := defaultChatLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			helpers.RespondError(c, "RecentChatHandler", biddingerrors.ErrInvalidInput, map[string]any{"room_id": roomID, "limit": raw})
			return
		}
		limit = n
	}

	msgs, err := h.chat.Recent(c.Request.Context(), roomID, limit)
	if err != nil {
		helpers.RespondError(c, "RecentChatHandler", err, map[string]any{"room_id": roomID})
		return
	}

	if msgs == nil {
		msgs = []models.ChatMessage{}
	}

	utils.JSONResponse(c, http.StatusOK, msgs, "messages retrieved successfully")
}
