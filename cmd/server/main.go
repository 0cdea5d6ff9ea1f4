package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dallasheidt14/PitchRank-sub001/internal/api"
	"github.com/dallasheidt14/PitchRank-sub001/internal/api/handlers"
	"github.com/dallasheidt14/PitchRank-sub001/internal/api/middleware"
	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/config"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	cacheService := services.NewCacheService(redisClient)
	webSocketHub := services.NewWebSocketHub()
	go webSocketHub.Run()

	smsService := buildSMSService(cfg)
	alertService := services.NewAlertService(db, smsService)
	snapshotService := services.NewSnapshotService(db, cfg.SnapshotToleranceDays, cfg.SnapshotRetentionDays, cfg.StoreBatchSize)

	engineCfg, err := services.EngineConfigFrom(cfg)
	if err != nil {
		logrus.Fatalf("Invalid rating configuration: %v", err)
	}
	rankingService := services.NewRankingService(db, cacheService, webSocketHub, alertService, snapshotService, cfg, engineCfg)

	// Nightly rating runs and snapshot pruning
	scheduler := services.NewSchedulerService(rankingService, snapshotService, cfg.RunSchedule, cfg.PruneSchedule)
	if err := scheduler.Start(); err != nil {
		logrus.Errorf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health check endpoints
	healthHandler := handlers.NewHealthHandler(db, cacheService, webSocketHub)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, cfg, rankingService, snapshotService, alertService)

	// Setup WebSocket endpoint at root level (not under /api/v1)
	wsHandler := handlers.NewWebSocketHandler(webSocketHub)
	router.GET("/ws", middleware.OptionalAuth(cfg.JWTSecret), wsHandler.HandleWebSocket)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// buildSMSService picks the alert transport. Anything but a fully configured
// twilio setup falls back to the mock so a missing credential never takes the
// server down.
func buildSMSService(cfg *config.Config) services.SMSService {
	if cfg.SMSProvider != "twilio" {
		return services.NewMockSMSService()
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		logrus.Warn("SMS_PROVIDER=twilio but credentials are incomplete, using mock SMS service")
		return services.NewMockSMSService()
	}
	limiter := services.NewSMSRateLimiter(cfg.SMSRateLimit, 24*time.Hour)
	return services.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, limiter)
}
