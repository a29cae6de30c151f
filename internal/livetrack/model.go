package livetrack

import (
	"time"
)

// TrackPoint is one appended position fix. Rows are immutable; the
// durable log is never truncated by this service.
type TrackPoint struct {
	SessionID string    `bson:"session_id" json:"-"`
	Lat       float64   `bson:"lat" json:"lat"`
	Lon       float64   `bson:"lon" json:"lon"`
	TS        time.Time `bson:"ts" json:"ts"`
}

// Session is the in-memory current state of one tracking session. The
// Track slice is a bounded recent-history buffer; full history lives in
// the point log.
type Session struct {
	ID        string
	Name      string
	Phone     string
	Lat       float64
	Lon       float64
	CreatedAt time.Time
	UpdatedAt time.Time
	StoppedAt *time.Time
	Active    bool
	Track     []TrackPoint
}

// SessionRecord is the durable mirror row for one session, used to
// rebuild the in-memory index after a restart.
type SessionRecord struct {
	ID        string     `bson:"_id"`
	Name      string     `bson:"name"`
	Phone     string     `bson:"phone"`
	Lat       float64    `bson:"lat"`
	Lon       float64    `bson:"lon"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	StoppedAt *time.Time `bson:"stopped_at,omitempty"`
	Active    bool       `bson:"active"`
}

// Snapshot is the read model handed to HTTP and websocket consumers.
// Active already folds in the recency threshold.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"nome"`
	Phone       string    `json:"phone"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	UpdatedAt   time.Time `json:"updated_at"`
	Active      bool      `json:"active"`
	TrackingURL string    `json:"tracking_url,omitempty"`
}

// ValidCoords is the basic range check applied everywhere coordinates
// enter the system.
func ValidCoords(lat, lon float64) bool {
	return lat >= -90.0 && lat <= 90.0 && lon >= -180.0 && lon <= 180.0
}
