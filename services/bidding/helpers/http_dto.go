package helpers

import "live-auction/internal/models"

// Request/Response DTOs
type RegisterRequest struct {
	Phone string      `json:"phone" binding:"required"`
	Email string      `json:"email"`
	Role  models.Role `json:"role" binding:"required"`
}

type RestrictionRequest struct {
	ActorSessionID string `json:"actor_session_id" binding:"required"`
	Restriction    string `json:"restriction" binding:"required,oneof=isMuted isBidBanned isKicked"`
	Value          *bool  `json:"value" binding:"required"`
}

type SetPriceRequest struct {
	ActorSessionID string `json:"actor_session_id" binding:"required"`
	Price          *int64 `json:"price" binding:"required"`
}

type StepPriceRequest struct {
	ActorSessionID string `json:"actor_session_id" binding:"required"`
	Delta          int64  `json:"delta" binding:"required"`
}

type PlaceBidRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
}

type StartAuctionRequest struct {
	ActorSessionID  string `json:"actor_session_id" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
	SeedPrice       *int64 `json:"seed_price"`
	ItemName        string `json:"item_name"`
}

type ActorRequest struct {
	ActorSessionID string `json:"actor_session_id" binding:"required"`
}

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type PriceResponse struct {
	RoomID string `json:"room_id"`
	Price  int64  `json:"price"`
}

type AuctionStateResponse struct {
	RoomID   string `json:"room_id"`
	IsActive bool   `json:"is_active"`
	EndTime  int64  `json:"end_time"`
	TimeLeft int    `json:"time_left"`
	ItemName string `json:"item_name,omitempty"`
}

type ToggleResponse struct {
	State  AuctionStateResponse         `json:"state"`
	Record *models.AuctionHistoryRecord `json:"record,omitempty"`
}

type ViewerCountResponse struct {
	RoomID string `json:"room_id"`
	Count  int    `json:"count"`
}

type ShowcaseRequest struct {
	ActorSessionID string `json:"actor_session_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
}

type ItemResponse struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}
