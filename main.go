package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"rientro/config"
	"rientro/database"
	"rientro/interfaces"
	"rientro/routes"
	"rientro/services"
	"rientro/websocket"
	"rientro/workers"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize transports
	push := initPushSender(cfg)
	sms := initSMSSender(cfg)

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Wire repositories and services
	repos := routes.NewRepositories(db)
	svcs := routes.NewServices(cfg, repos, push, sms, hub)

	// Start workers
	sweepWorker := workers.NewSweepWorker(repos.Trip, svcs.Escalation, svcs.Dispatch, svcs.Trip, redisClient, workers.SweepWorkerConfig{
		Interval:    cfg.SweepInterval,
		Workers:     cfg.SweepWorkers,
		TripTimeout: cfg.TripTimeout,
	})
	if err := sweepWorker.Start(); err != nil {
		logrus.Fatal("Failed to start sweep worker: ", err)
	}
	defer sweepWorker.Stop()

	cleanupWorker := workers.NewCleanupWorker(repos.Trip, repos.Notification, workers.CleanupWorkerConfig{
		RetentionDays: cfg.RetentionDays,
	})
	if err := cleanupWorker.Start(); err != nil {
		logrus.Fatal("Failed to start cleanup worker: ", err)
	}
	defer cleanupWorker.Stop()

	// Setup routes
	router := routes.SetupRoutes(cfg, svcs, redisClient, hub)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("🚀 Rientro Backend Server starting on port ", cfg.Port)
		logrus.Info("📱 Trip feed endpoint: /ws/trips/:id")
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("✅ Server shutdown complete")
}

func initPushSender(cfg *config.Config) interfaces.PushSender {
	if cfg.FirebaseCredentials == "" {
		logrus.Warn("Firebase credentials not configured, using noop push sender")
		return services.NewNoopPushSender()
	}

	push, err := services.NewPushService(cfg.FirebaseCredentials)
	if err != nil {
		logrus.Fatal("Failed to initialize push service: ", err)
	}
	return push
}

func initSMSSender(cfg *config.Config) interfaces.SMSSender {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		logrus.Warn("Twilio credentials not configured, using noop SMS sender")
		return services.NewNoopSMSSender()
	}

	return services.NewSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
