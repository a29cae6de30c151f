package livetrack

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*gin.Engine, LiveTrackService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewLiveTrackService(
		NewStore(500), newFakePointRepo(), newFakeSessionRepo(),
		zap.NewNop().Sugar(), "https://sos.example.com", 15*time.Minute)

	r := gin.New()
	handler := NewLiveTrackHandler(svc)
	r.POST("/api/live-track/start", handler.StartSession)
	r.POST("/api/live-track/update", handler.UpdateSession)
	r.POST("/api/live-track/stop", handler.StopSession)
	r.GET("/api/live-track/last/:session_id", handler.GetLastPosition)
	return r, svc
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateUnknownSessionAnswersSoft200(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/api/live-track/update", `{"session_id":"ghost","lat":-23.55,"lon":-46.63}`)

	assert.Equal(t, http.StatusOK, w.Code, "a phone in an emergency never sees a hard failure here")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "SESSION_NOT_FOUND", body["reason"])
}

func TestUpdateStoppedSessionAnswersSoft200(t *testing.T) {
	r, svc := newTestRouter(t)

	created, err := svc.Create(t.Context(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)
	require.NoError(t, svc.Stop(t.Context(), created.SessionID))

	w := postJSON(r, "/api/live-track/update",
		`{"session_id":"`+created.SessionID+`","lat":-23.56,"lon":-46.64}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "SESSION_INACTIVE", body["reason"])
}

func TestUpdateInvalidCoordsIsHard400(t *testing.T) {
	r, svc := newTestRouter(t)

	created, err := svc.Create(t.Context(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)

	w := postJSON(r, "/api/live-track/update",
		`{"session_id":"`+created.SessionID+`","lat":123.0,"lon":-46.64}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartThenLastRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/api/live-track/start", `{"nome":"Ana","phone":"11999990000","lat":-23.55,"lon":-46.63}`)
	require.Equal(t, http.StatusOK, w.Code)

	var started struct {
		OK          bool   `json:"ok"`
		SessionID   string `json:"session_id"`
		TrackingURL string `json:"tracking_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.True(t, started.OK)
	assert.Equal(t, "https://sos.example.com/t/"+started.SessionID, started.TrackingURL)

	get := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/live-track/last/"+started.SessionID, nil)
	r.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &snap))
	assert.Equal(t, "Ana", snap.Name)
	assert.Equal(t, -23.55, snap.Lat)
	assert.True(t, snap.Active)
}

func TestStopIsIdempotentOverHTTP(t *testing.T) {
	r, svc := newTestRouter(t)

	created, err := svc.Create(t.Context(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)

	body := `{"session_id":"` + created.SessionID + `"}`
	first := postJSON(r, "/api/live-track/stop", body)
	second := postJSON(r, "/api/live-track/stop", body)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}
