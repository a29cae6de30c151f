package channel

import (
	"context"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelPush     Channel = "push"
)

// Message is one alert rendered for delivery. Senders pick the parts
// their channel supports; rich channels embed the tracking link, plain
// ones get it appended to the body text.
type Message struct {
	Subject     string
	Body        string
	SenderName  string
	MapsURL     string
	TrackingURL string
	Lat         float64
	Lon         float64
	HasCoords   bool
}

// Result is the synchronous outcome of one provider call. The raw
// provider response is kept for the audit snapshot.
type Result struct {
	OK       bool   `json:"ok"`
	Status   int    `json:"status,omitempty"`
	Response string `json:"response,omitempty"`
	Reason   string `json:"reason,omitempty"`
	To       string `json:"to,omitempty"`
}

// Sender is one stateless channel adapter. Implementations never panic
// and never return an error: any failure is reported inside the Result
// so one bad channel cannot unwind a trigger.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, to string, msg Message) Result
}

func failure(to, reason string) Result {
	return Result{OK: false, Reason: reason, To: to}
}
