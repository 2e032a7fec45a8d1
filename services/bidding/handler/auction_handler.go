package handler

//go:generate mockgen -destination=mock_auction_service.go -package=handler live-auction/services/bidding/handler AuctionServiceInterface

import (
	"context"
	"net/http"
	"time"

	auction "live-auction/internal/auctionService"
	"live-auction/internal/models"
	"live-auction/services/bidding/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	Start(ctx context.Context, roomID, actorID string, opts auction.StartOptions) (models.AuctionState, error)
	Stop(ctx context.Context, roomID, actorID string) (*models.AuctionHistoryRecord, error)
	Toggle(ctx context.Context, roomID, actorID string, opts auction.StartOptions) (auction.ToggleResult, error)
	State(ctx context.Context, roomID string) (models.AuctionState, error)
	History(ctx context.Context, roomID string) ([]models.AuctionHistoryRecord, error)
	CurrentItem(ctx context.Context, roomID string) (string, error)
	ShowcaseItem(ctx context.Context, roomID, actorID, name string) error
}

type AuctionHandler struct {
	service AuctionServiceInterface
	now     func() time.Time
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service, now: time.Now}
}

func (h *AuctionHandler) stateResponse(roomID string, state models.AuctionState, item string) helpers.AuctionStateResponse {
	return helpers.AuctionStateResponse{
		RoomID:   roomID,
		IsActive: state.IsActive,
		EndTime:  state.EndTime,
		TimeLeft: auction.TimeLeft(state, h.now()),
		ItemName: item,
	}
}

func startOptions(req helpers.StartAuctionRequest) auction.StartOptions {
	return auction.StartOptions{
		DurationSeconds: req.DurationSeconds,
		SeedPrice:       req.SeedPrice,
		ItemName:        req.ItemName,
	}
}

// GetAuctionHandler handles GET /rooms/:room_id/auction
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	ctx := c.Request.Context()

	state, err := h.service.State(ctx, roomID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"room_id": roomID})
		return
	}
	item, err := h.service.CurrentItem(ctx, roomID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"room_id": roomID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.stateResponse(roomID, state, item), "auction state retrieved successfully")
}

// StartAuctionHandler handles POST /rooms/:room_id/auction/start
func (h *AuctionHandler) StartAuctionHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.StartAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "StartAuctionHandler", err)
		return
	}

	state, err := h.service.Start(c.Request.Context(), roomID, req.ActorSessionID, startOptions(req))
	if err != nil {
		helpers.RespondError(c, "StartAuctionHandler", err, map[string]any{"room_id": roomID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.stateResponse(roomID, state, req.ItemName), "auction started successfully")
	helpers.LogSuccess("StartAuctionHandler", "auction started successfully", map[string]any{
		"room_id":  roomID,
		"end_time": state.EndTime,
	})
}

// StopAuctionHandler handles POST /rooms/:room_id/auction/stop
func (h *AuctionHandler) StopAuctionHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "StopAuctionHandler", err)
		return
	}

	record, err := h.service.Stop(c.Request.Context(), roomID, req.ActorSessionID)
	if err != nil {
		helpers.RespondError(c, "StopAuctionHandler", err, map[string]any{"room_id": roomID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, record, "auction stopped successfully")
	helpers.LogSuccess("StopAuctionHandler", "auction stopped successfully", map[string]any{
		"room_id":     roomID,
		"item_name":   record.ItemName,
		"final_price": record.FinalPrice,
		"winner":      record.Winner,
	})
}

// ToggleAuctionHandler handles POST /rooms/:room_id/auction/toggle
func (h *AuctionHandler) ToggleAuctionHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.StartAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ToggleAuctionHandler", err)
		return
	}

	result, err := h.service.Toggle(c.Request.Context(), roomID, req.ActorSessionID, startOptions(req))
	if err != nil {
		helpers.RespondError(c, "ToggleAuctionHandler", err, map[string]any{"room_id": roomID})
		return
	}

	resp := helpers.ToggleResponse{State: h.stateResponse(roomID, result.State, ""), Record: result.Record}
	utils.JSONResponse(c, http.StatusOK, resp, "auction toggled successfully")
	helpers.LogSuccess("ToggleAuctionHandler", "auction toggled successfully", map[string]any{
		"room_id":   roomID,
		"is_active": result.State.IsActive,
	})
}

// GetHistoryHandler handles GET /rooms/:room_id/history
func (h *AuctionHandler) GetHistoryHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	records, err := h.service.History(c.Request.Context(), roomID)
	if err != nil {
		helpers.RespondError(c, "GetHistoryHandler", err, map[string]any{"room_id": roomID})
		return
	}

	if records == nil {
		records = []models.AuctionHistoryRecord{}
	}

	utils.JSONResponse(c, http.StatusOK, records, "history retrieved successfully")
	helpers.LogSuccess("GetHistoryHandler", "history retrieved successfully", map[string]any{
		"room_id": roomID,
		"count":   len(records),
	})
}

// ShowcaseItemHandler handles PUT /rooms/:room_id/item
func (h *AuctionHandler) ShowcaseItemHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.ShowcaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ShowcaseItemHandler", err)
		return
	}

	if err := h.service.ShowcaseItem(c.Request.Context(), roomID, req.ActorSessionID, req.Name); err != nil {
		helpers.RespondError(c, "ShowcaseItemHandler", err, map[string]any{"room_id": roomID, "name": req.Name})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ItemResponse{RoomID: roomID, Name: req.Name}, "item showcased successfully")
	helpers.LogSuccess("ShowcaseItemHandler", "item showcased successfully", map[string]any{"room_id": roomID, "name": req.Name})
}
