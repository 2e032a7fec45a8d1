package handler

//go:generate mockgen -destination=mock_bidding_service.go -package=handler live-auction/services/bidding/handler BiddingServiceInterface

import (
	"context"
	"net/http"

	"live-auction/internal/models"
	"live-auction/services/bidding/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

type BiddingServiceInterface interface {
	ReadPrice(ctx context.Context, roomID string) (int64, error)
	SetPrice(ctx context.Context, roomID, actorID string, price int64) (int64, error)
	StepPrice(ctx context.Context, roomID, actorID string, delta int64) (int64, error)
	PlaceBid(ctx context.Context, roomID, sessionID string, amount int64) (models.BidOutcome, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// PlaceBidHandler handles POST /rooms/:room_id/bids. A bid that lost the race
// is not an error: it comes back with accepted=false and the price that beat it.
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	outcome, err := h.service.PlaceBid(c.Request.Context(), roomID, req.SessionID, req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"room_id":    roomID,
			"session_id": req.SessionID,
			"amount":     req.Amount,
		})
		return
	}

	if !outcome.Accepted {
		utils.JSONResponse(c, http.StatusOK, outcome, "bid not above current price")
		helpers.LogSuccess("PlaceBidHandler", "bid outpaced", map[string]any{
			"room_id":       roomID,
			"session_id":    req.SessionID,
			"amount":        req.Amount,
			"current_price": outcome.CurrentPrice,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, outcome, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"room_id":    roomID,
		"session_id": req.SessionID,
		"amount":     req.Amount,
	})
}

// GetPriceHandler handles GET /rooms/:room_id/price
func (h *BiddingHandler) GetPriceHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	price, err := h.service.ReadPrice(c.Request.Context(), roomID)
	if err != nil {
		helpers.RespondError(c, "GetPriceHandler", err, map[string]any{"room_id": roomID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.PriceResponse{RoomID: roomID, Price: price}, "price retrieved successfully")
}

// SetPriceHandler handles PUT /rooms/:room_id/price
func (h *BiddingHandler) SetPriceHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetPriceHandler", err)
		return
	}

	price, err := h.service.SetPrice(c.Request.Context(), roomID, req.ActorSessionID, *req.Price)
	if err != nil {
		helpers.RespondError(c, "SetPriceHandler", err, map[string]any{"room_id": roomID, "price": *req.Price})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.PriceResponse{RoomID: roomID, Price: price}, "price updated successfully")
	helpers.LogSuccess("SetPriceHandler", "price updated successfully", map[string]any{"room_id": roomID, "price": price})
}

// StepPriceHandler handles POST /rooms/:room_id/price/step
func (h *BiddingHandler) StepPriceHandler(c *gin.Context) {
	roomID := c.Param("room_id")
	var req helpers.StepPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "StepPriceHandler", err)
		return
	}

	price, err := h.service.StepPrice(c.Request.Context(), roomID, req.ActorSessionID, req.Delta)
	if err != nil {
		helpers.RespondError(c, "StepPriceHandler", err, map[string]any{"room_id": roomID, "delta": req.Delta})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.PriceResponse{RoomID: roomID, Price: price}, "price updated successfully")
	helpers.LogSuccess("StepPriceHandler", "price updated successfully", map[string]any{"room_id": roomID, "price": price})
}
