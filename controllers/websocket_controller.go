package controllers

import (
	"rientro/services"
	"rientro/utils"
	"rientro/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub         *websocket.Hub
	tripService *services.TripService
}

func NewWebSocketController(hub *websocket.Hub, tripService *services.TripService) *WebSocketController {
	return &WebSocketController{
		hub:         hub,
		tripService: tripService,
	}
}

// TripFeed upgrades the connection and streams the trip's status changes.
func (wc *WebSocketController) TripFeed(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	tripID := c.Param("id")
	if _, err := wc.tripService.GetTrip(c.Request.Context(), userID, tripID); err != nil {
		utils.ServiceErrorResponse(c, err, "Failed to open trip feed")
		return
	}

	if err := websocket.ServeClient(wc.hub, c.Writer, c.Request, userID, tripID); err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
	}
}
