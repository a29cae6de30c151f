package receipt

import (
	"sos-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, handler *ReceiptHandler, jwtSecret string) {
	r.POST("/webhooks/zenvia", handler.HandleCallback)

	debugGroup := r.Group("debug/receipts", middleware.Secured(jwtSecret))
	{
		debugGroup.GET("/whatsapp", handler.RecentWhatsApp)
		debugGroup.GET("/sms", handler.RecentSMS)
	}
}
