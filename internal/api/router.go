package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dallasheidt14/PitchRank-sub001/internal/api/handlers"
	"github.com/dallasheidt14/PitchRank-sub001/internal/api/middleware"
	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/config"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, cfg *config.Config, ranking *services.RankingService, snapshots *services.SnapshotService, alerts *services.AlertService) {
	// Initialize handlers
	rankingsHandler := handlers.NewRankingsHandler(db, cache)
	teamsHandler := handlers.NewTeamsHandler(db, snapshots)
	runsHandler := handlers.NewRunsHandler(db, ranking, snapshots)
	alertsHandler := handlers.NewAlertsHandler(alerts)

	// Public routes
	group.GET("/rankings", rankingsHandler.GetRankings)
	group.GET("/rankings/movers", rankingsHandler.GetMovers)

	group.GET("/teams/:id", teamsHandler.GetTeam)
	group.GET("/teams/:id/history", teamsHandler.GetTeamHistory)

	group.GET("/runs/latest", runsHandler.GetLatestRun)
	group.GET("/runs/:id", runsHandler.GetRun)

	// Alert subscription is open; removal requires a token so a leaked
	// subscription id cannot be used to silence someone else's alerts.
	group.POST("/alerts", alertsHandler.CreateAlert)

	auth := group.Group("")
	auth.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		auth.DELETE("/alerts/:id", alertsHandler.DeleteAlert)

		admin := auth.Group("/admin")
		{
			admin.POST("/runs", runsHandler.TriggerRun)
			admin.POST("/snapshots/purge", runsHandler.PurgeSnapshots)
		}
	}

	// WebSocket and health endpoints live at the root level, not under /api/v1.
	// They are wired in main.go.
}
