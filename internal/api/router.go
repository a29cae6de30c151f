package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sos-service/internal/alert"
	"sos-service/internal/livetrack"
	"sos-service/internal/receipt"
)

// RegisterRouters wires every feature's routes plus the probe
// endpoints consul and load balancers hit.
func RegisterRouters(
	r *gin.Engine,
	alertHandler *alert.AlertHandler,
	liveTrackHandler *livetrack.LiveTrackHandler,
	receiptHandler *receipt.ReceiptHandler,
	jwtSecret string,
) {
	alert.RegisterRoutes(r, alertHandler, jwtSecret)
	livetrack.RegisterRoutes(r, liveTrackHandler, jwtSecret)
	receipt.RegisterRoutes(r, receiptHandler, jwtSecret)

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ping": "ok"})
	})
}
