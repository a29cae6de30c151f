package livetrack

type StartSessionRequest struct {
	Name  string  `json:"nome"`
	Phone string  `json:"phone"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

type UpdateSessionRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

type StopSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}
