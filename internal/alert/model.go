package alert

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"sos-service/internal/channel"
)

// AlertAudit is the append-only record of one trigger: who asked for
// help, what was sent where, and what every provider answered. Exactly
// one row is written per trigger, success or not.
type AlertAudit struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone" json:"phone"`
	UserEmail string             `bson:"user_email" json:"user_email"`
	Text      string             `bson:"text" json:"text"`

	Lat       float64 `bson:"lat" json:"lat"`
	Lon       float64 `bson:"lon" json:"lon"`
	Accuracy  float64 `bson:"acc" json:"acc"`
	HasCoords bool    `bson:"has_coords" json:"has_coords"`
	MapsURL   string  `bson:"maps_url" json:"maps_url"`

	TrackingID  string `bson:"tracking_id" json:"tracking_id"`
	TrackingURL string `bson:"tracking_url" json:"tracking_url"`

	OK     bool          `bson:"ok" json:"ok"`
	Status ChannelStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ChannelStatus is the per-channel outcome block, mirrored verbatim
// into the trigger response.
type ChannelStatus struct {
	Email    bool `bson:"email" json:"email"`
	SMS      bool `bson:"sms" json:"sms"`
	WhatsApp bool `bson:"whatsapp" json:"whatsapp"`
	Telegram bool `bson:"telegram" json:"telegram"`
	Push     bool `bson:"push" json:"push"`

	EmailResults    []channel.Result `bson:"email_results" json:"email_results,omitempty"`
	SMSResults      []channel.Result `bson:"sms_results" json:"sms_results"`
	WAResults       []channel.Result `bson:"wa_results" json:"wa_results"`
	TelegramResults []channel.Result `bson:"telegram_results" json:"telegram_results,omitempty"`
	PushResults     []channel.Result `bson:"push_results" json:"push_results,omitempty"`

	TrackingID  string `bson:"tracking_id" json:"tracking_id"`
	TrackingURL string `bson:"tracking_url" json:"tracking_url"`
}

// MetricEvent is a best-effort reporting row. Losing one never affects
// the trigger it describes.
type MetricEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Kind      string             `bson:"kind"`
	UserEmail string             `bson:"user_email"`
	OK        bool               `bson:"ok"`
	CreatedAt time.Time          `bson:"created_at"`
}

const MetricSOSTrigger = "sos_trigger"
