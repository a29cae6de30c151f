package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sos-service/config"
	"sos-service/internal/channel"
	"sos-service/internal/contact"
	"sos-service/internal/livetrack"
)

const (
	defaultChannelTimeout = 20 * time.Second
	defaultSendThrottle   = 120 * time.Millisecond
)

type AlertService interface {
	Trigger(ctx context.Context, req *TriggerAlertRequest) (*AlertAudit, error)
}

// TrackStarter is the slice of the live-track service a trigger needs.
type TrackStarter interface {
	Create(ctx context.Context, name, phone string, lat, lon float64) (*livetrack.Created, error)
}

type alertService struct {
	senders          []channel.Sender
	contactService   contact.ContactService
	liveTrackService TrackStarter
	alertRepository  AlertRepository
	logger           *zap.SugaredLogger
	cfg              *config.Config
}

func NewAlertService(
	senders []channel.Sender,
	contactService contact.ContactService,
	liveTrackService TrackStarter,
	alertRepository AlertRepository,
	logger *zap.SugaredLogger,
	cfg *config.Config,
) AlertService {
	return &alertService{
		senders:          senders,
		contactService:   contactService,
		liveTrackService: liveTrackService,
		alertRepository:  alertRepository,
		logger:           logger,
		cfg:              cfg,
	}
}

// recipients is the per-channel fan-out plan for one trigger.
type recipients struct {
	emails   []string
	sms      []string
	whatsapp []string
	telegram []string
	push     []string
}

// Trigger runs the whole alert: resolve recipients, open the tracking
// session, fan the message out to every channel in parallel, and write
// the audit row. A channel failure never unwinds the trigger; the audit
// write is the only storage error the caller sees.
func (s *alertService) Trigger(ctx context.Context, req *TriggerAlertRequest) (*AlertAudit, error) {

	now := time.Now().UTC()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Contato"
	}

	var lat, lon, acc float64
	hasCoords := false
	if req.Lat != nil && req.Lon != nil && livetrack.ValidCoords(*req.Lat, *req.Lon) {
		lat, lon = *req.Lat, *req.Lon
		hasCoords = true
	}
	if req.Accuracy != nil {
		acc = *req.Accuracy
	}

	audit := &AlertAudit{
		Name:      name,
		Phone:     req.Phone,
		UserEmail: req.UserEmail,
		Text:      req.Text,
		Lat:       lat,
		Lon:       lon,
		Accuracy:  acc,
		HasCoords: hasCoords,
		CreatedAt: now,
	}

	if hasCoords {
		audit.MapsURL = fmt.Sprintf("https://maps.google.com/?q=%.7f,%.7f", lat, lon)

		created, err := s.liveTrackService.Create(ctx, name, req.Phone, lat, lon)
		if err != nil {
			s.logger.Errorf("alert: tracking session create failed name=%s err=%v", name, err)
		} else {
			audit.TrackingID = created.SessionID
			audit.TrackingURL = created.TrackingURL
		}
	}

	plan := s.resolveRecipients(ctx, req.UserEmail)

	msg := channel.Message{
		Subject:     fmt.Sprintf("ALERTA de %s", name),
		Body:        strings.TrimSpace(req.Text),
		SenderName:  name,
		MapsURL:     audit.MapsURL,
		TrackingURL: audit.TrackingURL,
		Lat:         lat,
		Lon:         lon,
		HasCoords:   hasCoords,
	}

	results := s.fanOut(ctx, plan, msg)

	audit.Status = ChannelStatus{
		Email:           anyOK(results[channel.ChannelEmail]),
		SMS:             anyOK(results[channel.ChannelSMS]),
		WhatsApp:        anyOK(results[channel.ChannelWhatsApp]),
		Telegram:        anyOK(results[channel.ChannelTelegram]),
		Push:            anyOK(results[channel.ChannelPush]),
		EmailResults:    results[channel.ChannelEmail],
		SMSResults:      results[channel.ChannelSMS],
		WAResults:       results[channel.ChannelWhatsApp],
		TelegramResults: results[channel.ChannelTelegram],
		PushResults:     results[channel.ChannelPush],
		TrackingID:      audit.TrackingID,
		TrackingURL:     audit.TrackingURL,
	}
	audit.OK = audit.Status.Email || audit.Status.SMS || audit.Status.WhatsApp ||
		audit.Status.Telegram || audit.Status.Push

	s.logger.Infof("alert: trigger done name=%s ok=%t email=%t sms=%t wa=%t tg=%t push=%t tracking=%s",
		name, audit.OK, audit.Status.Email, audit.Status.SMS, audit.Status.WhatsApp,
		audit.Status.Telegram, audit.Status.Push, audit.TrackingID)

	if err := s.alertRepository.SaveMetric(ctx, &MetricEvent{
		Kind:      MetricSOSTrigger,
		UserEmail: req.UserEmail,
		OK:        audit.OK,
		CreatedAt: now,
	}); err != nil {
		s.logger.Warnf("alert: metric write failed err=%v", err)
	}

	if err := s.alertRepository.SaveAudit(ctx, audit); err != nil {
		s.logger.Errorf("alert: audit write failed err=%v", err)
		return audit, err
	}

	return audit, nil
}

// resolveRecipients asks the contact service for the account's verified
// contacts and falls back to the operator-configured legacy lists when
// the lookup fails or comes back empty.
func (s *alertService) resolveRecipients(ctx context.Context, userEmail string) recipients {

	if userEmail != "" && s.contactService != nil {
		resolved, err := s.contactService.Resolve(ctx, userEmail)
		if err != nil {
			s.logger.Warnf("alert: contact resolve failed email=%s err=%v", userEmail, err)
		} else if resolved != nil && resolved.HasAny() {
			return recipients{
				emails:   resolved.Emails,
				sms:      resolved.SMS,
				whatsapp: resolved.WhatsApp,
				telegram: resolved.Telegram,
				push:     resolved.PushTokens,
			}
		}
	}

	return recipients{
		emails:   s.cfg.EmailLegacyList(),
		sms:      s.cfg.SMSLegacyList(),
		whatsapp: s.cfg.WALegacyList(),
		telegram: s.cfg.TelegramLegacyChatIDs(),
	}
}

// fanOut runs the channels in parallel and the recipients within one
// channel sequentially, a throttle apart, so a provider never sees a
// burst for one account.
func (s *alertService) fanOut(ctx context.Context, plan recipients, msg channel.Message) map[channel.Channel][]channel.Result {

	timeout := s.cfg.ChannelTimeout
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	throttle := s.cfg.SendThrottle
	if throttle <= 0 {
		throttle = defaultSendThrottle
	}

	results := make(map[channel.Channel][]channel.Result, len(s.senders))

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, snd := range s.senders {
		tos := plan.forChannel(snd.Channel())
		if len(tos) == 0 {
			continue
		}

		wg.Add(1)
		go func(snd channel.Sender, tos []string) {
			defer wg.Done()

			out := make([]channel.Result, 0, len(tos))
			for i, to := range tos {
				if i > 0 {
					time.Sleep(throttle)
				}
				sendCtx, cancel := context.WithTimeout(ctx, timeout)
				out = append(out, snd.Send(sendCtx, to, msg))
				cancel()
			}

			mu.Lock()
			results[snd.Channel()] = out
			mu.Unlock()
		}(snd, tos)
	}

	wg.Wait()
	return results
}

func (p recipients) forChannel(ch channel.Channel) []string {
	switch ch {
	case channel.ChannelEmail:
		return p.emails
	case channel.ChannelSMS:
		return p.sms
	case channel.ChannelWhatsApp:
		return p.whatsapp
	case channel.ChannelTelegram:
		return p.telegram
	case channel.ChannelPush:
		return p.push
	}
	return nil
}

func anyOK(results []channel.Result) bool {
	for _, r := range results {
		if r.OK {
			return true
		}
	}
	return false
}
