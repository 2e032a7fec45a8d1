package handler

//go:generate mockgen -destination=mock_audience_service.go -package=handler live-auction/services/bidding/handler AudienceServiceInterface

import (
	"context"
	"net/http"

	"live-auction/internal/audience"
	"live-auction/internal/models"
	"live-auction/services/bidding/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

type AudienceServiceInterface interface {
	Register(ctx context.Context, roomID string, req audience.RegisterRequest) (models.Session, error)
	Get(ctx context.Context, roomID, sessionID string) (models.Session, error)
	List(ctx context.Context, roomID string) ([]models.Session, error)
	SetRestriction(ctx context.Context, roomID, actorID, targetID string, restriction audience.Restriction, value bool) (models.Session, error)
}

type AudienceHandler struct {
	service AudienceServiceInterface
}

func NewAudienceHandler(service AudienceServiceInterface) *AudienceHandler {
	return &AudienceHandler{service: service}
}

// RegisterHandler handles POST /rooms/:room_id/audience
func (h *AudienceHandler) RegisterHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	sess, err := h.service.Register(c.Request.Context(), roomID, audience.RegisterRequest{
		Phone: req.Phone,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		helpers.RespondError(c, "RegisterHandler", err, map[string]any{"room_id": roomID, "role": req.Role})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, sess, "session registered successfully")
	helpers.LogSuccess("RegisterHandler", "session registered successfully", map[string]any{
		"room_id":    roomID,
		"session_id": sess.ID,
		"user_id":    sess.UserID,
	})
}

// GetSessionHandler handles GET /rooms/:room_id/audience/:session_id
func (h *AudienceHandler) GetSessionHandler(c *gin.Context) {
	roomID, sessionID := c.Param("room_id"), c.Param("session_id")
	sess, err := h.service.Get(c.Request.Context(), roomID, sessionID)
	if err != nil {
		helpers.RespondError(c, "GetSessionHandler", err, map[string]any{"room_id": roomID, "session_id": sessionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, sess, "session retrieved successfully")
}

// ListAudienceHandler handles GET /rooms/:room_id/audience
func (h *AudienceHandler) ListAudienceHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	sessions, err := h.service.List(c.Request.Context(), roomID)
	if err != nil {
		helpers.RespondError(c, "ListAudienceHandler", err, map[string]any{"room_id": roomID})
		return
	}

	if sessions == nil {
		sessions = []models.Session{}
	}

	utils.JSONResponse(c, http.StatusOK, sessions, "audience retrieved successfully")
	helpers.LogSuccess("ListAudienceHandler", "audience retrieved successfully", map[string]any{
		"room_id": roomID,
		"count":   len(sessions),
	})
}

// SetRestrictionHandler handles PUT /rooms/:room_id/audience/:session_id/restrictions
func (h *AudienceHandler) SetRestrictionHandler(c *gin.Context) {
	roomID, targetID := c.Param("room_id"), c.Param("session_id")
	var req helpers.RestrictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetRestrictionHandler", err)
		return
	}

	sess, err := h.service.SetRestriction(c.Request.Context(), roomID, req.ActorSessionID, targetID, audience.Restriction(req.Restriction), *req.Value)
	if err != nil {
		helpers.RespondError(c, "SetRestrictionHandler", err, map[string]any{
			"room_id":     roomID,
			"target":      targetID,
			"restriction": req.Restriction,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, sess, "restriction updated successfully")
	helpers.LogSuccess("SetRestrictionHandler", "restriction updated successfully", map[string]any{
		"room_id":     roomID,
		"target":      targetID,
		"restriction": req.Restriction,
		"value":       *req.Value,
	})
}
