package handler

import (
	"context"
	"net/http"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
	"live-auction/services/bidding/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// LiveServer runs one upgraded room connection
type LiveServer interface {
	Serve(ctx context.Context, ws *websocket.Conn, sess models.Session) error
}

type SessionLookup interface {
	Get(ctx context.Context, roomID, sessionID string) (models.Session, error)
}

type LiveHandler struct {
	sessions SessionLookup
	live     LiveServer
	upgrader websocket.Upgrader
}

func NewLiveHandler(sessions SessionLookup, live LiveServer) *LiveHandler {
	return &LiveHandler{
		sessions: sessions,
		live:     live,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ConnectHandler handles GET /rooms/:room_id/live?session_id=... The session is
// checked before the upgrade so refusals are plain HTTP errors.
func (h *LiveHandler) ConnectHandler(c *gin.Context) {
	roomID, sessionID := c.Param("room_id"), c.Query("session_id")
	if sessionID == "" {
		helpers.RespondError(c, "ConnectHandler", biddingerrors.ErrInvalidInput, map[string]any{"room_id": roomID})
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), roomID, sessionID)
	if err != nil {
		helpers.RespondError(c, "ConnectHandler", err, map[string]any{"room_id": roomID, "session_id": sessionID})
		return
	}
	if sess.Restrictions.IsKicked {
		helpers.RespondError(c, "ConnectHandler", biddingerrors.ErrKicked, map[string]any{"room_id": roomID, "session_id": sessionID})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		utils.Warn("ConnectHandler: upgrade failed", map[string]any{"room_id": roomID, "error": err.Error()})
		return
	}

	if err := h.live.Serve(c.Request.Context(), ws, sess); err != nil {
		utils.Error("ConnectHandler: live connection failed", map[string]any{
			"room_id":    roomID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
