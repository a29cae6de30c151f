package alert

import (
	"sos-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, handler *AlertHandler, jwtSecret string) {
	r.POST("/api/sos", handler.TriggerAlert)

	alertGroup := r.Group("api/alerts", middleware.Secured(jwtSecret))
	{
		alertGroup.GET("", handler.RecentAlerts)
	}
}
