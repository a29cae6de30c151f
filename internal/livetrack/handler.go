package livetrack

import (
	"errors"
	"net/http"

	"sos-service/helper"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LiveTrackHandler struct {
	liveTrackService LiveTrackService
	upgrader         websocket.Upgrader
}

func NewLiveTrackHandler(liveTrackService LiveTrackService) *LiveTrackHandler {
	return &LiveTrackHandler{
		liveTrackService: liveTrackService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Tracking links are shared across arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *LiveTrackHandler) StartSession(c *gin.Context) {

	var req StartSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		helper.SendError(c, http.StatusBadRequest, err, helper.ErrInvalidRequest)
		return
	}

	created, err := h.liveTrackService.Create(c, req.Name, req.Phone, req.Lat, req.Lon)
	if err != nil {
		if errors.Is(err, ErrInvalidCoords) {
			helper.SendError(c, http.StatusBadRequest, err, helper.ErrInvalidRequest)
			return
		}
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"session_id":   created.SessionID,
		"tracking_url": created.TrackingURL,
	})
}

// UpdateSession is the phone-facing position beat. Unknown and stopped
// sessions answer soft 200 so a phone in an emergency never treats the
// server's view of the session as a transport failure.
func (h *LiveTrackHandler) UpdateSession(c *gin.Context) {

	var req UpdateSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		helper.SendError(c, http.StatusBadRequest, err, helper.ErrInvalidRequest)
		return
	}

	snap, err := h.liveTrackService.Update(c, req.SessionID, req.Lat, req.Lon)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCoords):
			helper.SendError(c, http.StatusBadRequest, err, helper.ErrInvalidRequest)
		case errors.Is(err, ErrSessionNotFound):
			c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "SESSION_NOT_FOUND"})
		case errors.Is(err, ErrSessionInactive):
			c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "SESSION_INACTIVE"})
		default:
			helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "active": snap.Active, "updated_at": snap.UpdatedAt})
}

func (h *LiveTrackHandler) StopSession(c *gin.Context) {

	var req StopSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		helper.SendError(c, http.StatusBadRequest, err, helper.ErrInvalidRequest)
		return
	}

	if err := h.liveTrackService.Stop(c, req.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusOK, gin.H{"ok": false, "reason": "SESSION_NOT_FOUND"})
			return
		}
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *LiveTrackHandler) GetLastPosition(c *gin.Context) {

	snap, err := h.liveTrackService.Get(c, c.Param("session_id"))
	if err != nil {
		helper.SendError(c, http.StatusNotFound, err, helper.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *LiveTrackHandler) GetTrack(c *gin.Context) {

	snap, points, err := h.liveTrackService.Track(c, c.Param("session_id"))
	if err != nil {
		helper.SendError(c, http.StatusNotFound, err, helper.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": snap,
		"points":  points,
	})
}

func (h *LiveTrackHandler) GetPoints(c *gin.Context) {

	points, err := h.liveTrackService.Points(c, c.Param("session_id"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			helper.SendError(c, http.StatusNotFound, err, helper.ErrNotFound)
			return
		}
		helper.SendError(c, http.StatusInternalServerError, err, helper.ErrInvalidOperation)
		return
	}

	c.JSON(http.StatusOK, gin.H{"points": points, "count": len(points)})
}

func (h *LiveTrackHandler) ListSessions(c *gin.Context) {

	sessions := h.liveTrackService.List(c)

	helper.SendSuccess(c, http.StatusOK, "success", sessions)
}

func (h *LiveTrackHandler) DeleteSession(c *gin.Context) {

	removed := h.liveTrackService.Delete(c, c.Param("session_id"))

	helper.SendSuccess(c, http.StatusOK, "success", gin.H{"removed": removed})
}

// StreamSession upgrades to a websocket and pushes every accepted
// position update for the session until it stops.
func (h *LiveTrackHandler) StreamSession(c *gin.Context) {

	id := c.Param("session_id")

	snap, err := h.liveTrackService.Get(c, id)
	if err != nil {
		helper.SendError(c, http.StatusNotFound, err, helper.ErrNotFound)
		return
	}

	sub, err := h.liveTrackService.Subscribe(id)
	if err != nil {
		helper.SendError(c, http.StatusNotFound, err, helper.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.liveTrackService.Unsubscribe(sub)
		return
	}

	go func() {
		defer h.liveTrackService.Unsubscribe(sub)
		serveSubscriber(conn, sub, snap)
	}()
}
