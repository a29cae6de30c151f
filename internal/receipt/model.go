package receipt

import "time"

// Bucket names the two receipt collections. WhatsApp callbacks get
// their own bucket; every other channel, recognized or not, lands in
// the SMS bucket.
type Bucket string

const (
	BucketWhatsApp Bucket = "wa_receipts"
	BucketSMS      Bucket = "sms_receipts"
)

// Unknown is the sentinel stored when no extractor rule produced a
// value for a field.
const Unknown = "UNKNOWN"

// StatusPing marks provider health-check callbacks.
const StatusPing = "PING"

// DeliveryReceipt is one normalized provider callback. Raw always
// carries the payload exactly as received, so nothing the provider
// sent is ever lost to a parsing gap.
type DeliveryReceipt struct {
	MessageID   string    `bson:"message_id" json:"message_id"`
	Recipient   string    `bson:"recipient" json:"recipient"`
	Channel     string    `bson:"channel" json:"channel"`
	Status      string    `bson:"status" json:"status"`
	Code        string    `bson:"code" json:"code"`
	Description string    `bson:"description" json:"description"`
	Raw         string    `bson:"raw" json:"raw"`
	ReceivedAt  time.Time `bson:"received_at" json:"received_at"`
}
