package alert

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"sos-service/helper"
	"sos-service/internal/contact"
	"sos-service/pkg/constants"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	alertService    AlertService
	alertRepository AlertRepository
}

func NewAlertHandler(alertService AlertService, alertRepository AlertRepository) *AlertHandler {
	return &AlertHandler{
		alertService:    alertService,
		alertRepository: alertRepository,
	}
}

// TriggerAlert answers 200 when at least one channel got through and
// 500 when none did; either way the body carries the full per-channel
// status so the phone can show the user exactly what happened.
func (h *AlertHandler) TriggerAlert(c *gin.Context) {

	var req TriggerAlertRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		helper.SendError(c, http.StatusBadRequest, err, helper.ErrInvalidRequest)
		return
	}

	var ctx context.Context = c
	if token, exists := c.Get(constants.Token); exists {
		if raw, ok := token.(string); ok {
			ctx = contact.WithToken(ctx, raw)
		}
	} else if bearer := bearerToken(c); bearer != "" {
		ctx = contact.WithToken(ctx, bearer)
	}

	audit, err := h.alertService.Trigger(ctx, &req)
	if err != nil {
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	status := http.StatusOK
	if !audit.OK {
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{
		"ok":     audit.OK,
		"status": audit.Status,
	})
}

func (h *AlertHandler) RecentAlerts(c *gin.Context) {

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	audits, err := h.alertRepository.RecentAudits(c, limit)
	if err != nil {
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	helper.SendSuccess(c, http.StatusOK, "success", audits)
}

// bearerToken extracts an optional Authorization bearer. The trigger
// endpoint is deliberately open: an alert must go out even when the
// phone's token has expired.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
