package server

import (
	"net/http"

	auction "live-auction/internal/auctionService"
	"live-auction/internal/audience"
	bidding "live-auction/internal/biddingService"
	"live-auction/internal/chat"
	"live-auction/internal/live"
	"live-auction/internal/presence"
	handler "live-auction/services/bidding/handler"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the room services the HTTP API exposes
type Services struct {
	Bidding  *bidding.BiddingService
	Auction  *auction.AuctionService
	Audience *audience.AudienceService
	Presence *presence.PresenceService
	Chat     *chat.ChatService
	Live     *live.Hub
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(svc Services) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(MetricsMiddleware)

	biddingHandler := handler.NewBiddingHandler(svc.Bidding)
	auctionHandler := handler.NewAuctionHandler(svc.Auction)
	audienceHandler := handler.NewAudienceHandler(svc.Audience)
	roomHandler := handler.NewRoomHandler(svc.Presence, svc.Chat)
	liveHandler := handler.NewLiveHandler(svc.Audience, svc.Live)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"ok": true}, "healthy")
	})

	rooms := router.Group("/rooms/:room_id")
	{
		rooms.POST("/audience", audienceHandler.RegisterHandler)
		rooms.GET("/audience", audienceHandler.ListAudienceHandler)
		rooms.GET("/audience/:session_id", audienceHandler.GetSessionHandler)
		rooms.PUT("/audience/:session_id/restrictions", audienceHandler.SetRestrictionHandler)

		rooms.GET("/price", biddingHandler.GetPriceHandler)
		rooms.PUT("/price", biddingHandler.SetPriceHandler)
		rooms.POST("/price/step", biddingHandler.StepPriceHandler)
		rooms.POST("/bids", biddingHandler.PlaceBidHandler)

		rooms.GET("/auction", auctionHandler.GetAuctionHandler)
		rooms.POST("/auction/start", auctionHandler.StartAuctionHandler)
		rooms.POST("/auction/stop", auctionHandler.StopAuctionHandler)
		rooms.POST("/auction/toggle", auctionHandler.ToggleAuctionHandler)
		rooms.GET("/history", auctionHandler.GetHistoryHandler)
		rooms.PUT("/item", auctionHandler.ShowcaseItemHandler)

		rooms.GET("/viewers/count", roomHandler.ViewerCountHandler)
		rooms.POST("/chat", roomHandler.SendChatHandler)
		rooms.GET("/chat", roomHandler.RecentChatHandler)

		rooms.GET("/live", liveHandler.ConnectHandler)
	}

	return router
}
