package channel

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// PushSender delivers the alert as an FCM notification to a contact's
// registered device token.
type PushSender struct {
	app    *firebase.App
	logger *zap.SugaredLogger
}

func NewPushSender(app *firebase.App, logger *zap.SugaredLogger) *PushSender {
	return &PushSender{app: app, logger: logger}
}

func (s *PushSender) Channel() Channel { return ChannelPush }

func (s *PushSender) Send(ctx context.Context, token string, msg Message) Result {
	if s.app == nil {
		return failure(token, "PUSH_DISABLED")
	}

	client, err := s.app.Messaging(ctx)
	if err != nil {
		return failure(token, err.Error())
	}

	data := map[string]string{}
	if msg.TrackingURL != "" {
		data["tracking_url"] = msg.TrackingURL
	}
	if msg.MapsURL != "" {
		data["maps_url"] = msg.MapsURL
	}

	fcm := &messaging.Message{
		Notification: &messaging.Notification{
			Title: "🚨 " + msg.Subject,
			Body:  msg.Body,
		},
		Data:  data,
		Token: token,
	}

	id, err := client.Send(ctx, fcm)
	if err != nil {
		s.logger.Errorf("push send failed token=%s err=%v", token, err)
		return failure(token, err.Error())
	}
	return Result{OK: true, Response: id, To: token}
}
