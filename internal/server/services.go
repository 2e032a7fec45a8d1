package server

import (
	"time"

	"live-auction/internal/analytics"
	auction "live-auction/internal/auctionService"
	"live-auction/internal/audience"
	bidding "live-auction/internal/biddingService"
	"live-auction/internal/chat"
	"live-auction/internal/live"
	"live-auction/internal/presence"
	"live-auction/internal/repository"
)

// NewServices wires every room service onto one store
func NewServices(repo repository.RealtimeDB, auctionDuration time.Duration) Services {
	aud := audience.NewAudienceService(repo)
	chatSvc := chat.NewChatService(repo, aud)
	events := analytics.NewRecorder(repo)
	ledger := bidding.NewBiddingService(repo, aud, chatSvc, events)
	auctions := auction.NewAuctionService(repo, aud, ledger, chatSvc, auctionDuration)
	pres := presence.NewPresenceService(repo, events)

	return Services{
		Bidding:  ledger,
		Auction:  auctions,
		Audience: aud,
		Presence: pres,
		Chat:     chatSvc,
		Live:     live.NewHub(repo, pres, auctions),
	}
}
