package receipt

import (
	"io"
	"net/http"
	"strconv"

	"sos-service/helper"

	"github.com/gin-gonic/gin"
)

const defaultRecentLimit = 50

type ReceiptHandler struct {
	receiptService ReceiptService
}

func NewReceiptHandler(receiptService ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
	}
}

// HandleCallback is the provider-facing webhook. It always answers 200:
// a non-2xx here only makes the provider hammer the endpoint with
// redeliveries of a payload that will not parse any better next time.
func (h *ReceiptHandler) HandleCallback(c *gin.Context) {

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		body = nil
	}

	stored := h.receiptService.Ingest(c, body)

	c.JSON(http.StatusOK, gin.H{"ok": true, "stored": stored})
}

func (h *ReceiptHandler) RecentWhatsApp(c *gin.Context) {

	receipts, err := h.receiptService.RecentWhatsApp(c, recentLimit(c))
	if err != nil {
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	helper.SendSuccess(c, http.StatusOK, "success", receipts)
}

func (h *ReceiptHandler) RecentSMS(c *gin.Context) {

	receipts, err := h.receiptService.RecentSMS(c, recentLimit(c))
	if err != nil {
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	helper.SendSuccess(c, http.StatusOK, "success", receipts)
}

func recentLimit(c *gin.Context) int64 {
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultRecentLimit
}
