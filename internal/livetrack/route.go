package livetrack

import (
	"sos-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, handler *LiveTrackHandler, jwtSecret string) {
	group := r.Group("api/live-track")
	{
		group.POST("/start", handler.StartSession)
		group.POST("/update", handler.UpdateSession)
		group.POST("/stop", handler.StopSession)
		group.GET("/last/:session_id", handler.GetLastPosition)
		group.GET("/track/:session_id", handler.GetTrack)
		group.GET("/points/:session_id", handler.GetPoints)
		group.GET("/ws/:session_id", handler.StreamSession)
	}

	secured := r.Group("api/live-track", middleware.Secured(jwtSecret))
	{
		secured.GET("/list", handler.ListSessions)
		secured.DELETE("/session/:session_id", handler.DeleteSession)
	}
}
