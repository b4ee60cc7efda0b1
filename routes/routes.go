// routes/routes.go
package routes

import (
	"net/http"
	"rientro/config"
	"rientro/controllers"
	"rientro/interfaces"
	"rientro/middleware"
	"rientro/models"
	"rientro/repositories"
	"rientro/services"
	"rientro/utils"
	"rientro/websocket"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// Repositories wires the Mongo-backed stores.
type Repositories struct {
	Trip         *repositories.TripRepository
	User         *repositories.UserRepository
	Contact      *repositories.ContactRepository
	Notification *repositories.NotificationRepository
}

func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Trip:         repositories.NewTripRepository(db),
		User:         repositories.NewUserRepository(db),
		Contact:      repositories.NewContactRepository(db),
		Notification: repositories.NewNotificationRepository(db),
	}
}

// Services wires the engine on top of the repositories and transports.
type Services struct {
	Escalation *services.EscalationService
	Dispatch   *services.DispatchService
	Trip       *services.TripService
}

func NewServices(cfg *config.Config, repos *Repositories, push interfaces.PushSender, sms interfaces.SMSSender, hub *websocket.Hub) *Services {
	dispatch := services.NewDispatchService(repos.Contact, repos.User, repos.Notification, push, sms)

	return &Services{
		Escalation: services.NewEscalationService(cfg.Escalation),
		Dispatch:   dispatch,
		Trip:       services.NewTripService(repos.Trip, repos.User, repos.Notification, dispatch, hub),
	}
}

// SetupRoutes initializes all application routes
func SetupRoutes(cfg *config.Config, svcs *Services, redisClient *redis.Client, hub *websocket.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	jwtService := utils.NewJWTService(cfg.JWTSecret)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	tripController := controllers.NewTripController(svcs.Trip)
	wsController := controllers.NewWebSocketController(hub, svcs.Trip)

	// Global middleware
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.LoggerMiddleware(middleware.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Redis:     redisClient,
		Requests:  cfg.RateLimitRequests,
		Window:    cfg.RateLimitWindow,
		SkipPaths: []string{"/health"},
	})
	router.Use(rateLimiter.Middleware())

	// Public routes
	router.GET("/health", healthCheck)

	// Authenticated API
	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	{
		trips := api.Group("/trips")
		{
			trips.POST("", tripController.CreateTrip)
			trips.GET("", tripController.GetTrips)
			trips.GET("/:id", tripController.GetTrip)
			trips.POST("/:id/checkin", tripController.CheckIn)
			trips.POST("/:id/complete", tripController.CompleteTrip)
			trips.POST("/:id/cancel", tripController.CancelTrip)
			trips.POST("/:id/sos", tripController.TriggerSOS)
			trips.GET("/:id/notifications", tripController.GetTripNotifications)
		}
	}

	// WebSocket feed
	ws := router.Group("/ws")
	ws.Use(authMiddleware.RequireAuth())
	{
		ws.GET("/trips/:id", wsController.TripFeed)
	}

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services: map[string]string{
			"api": "up",
		},
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
	})
}
