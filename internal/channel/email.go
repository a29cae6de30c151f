package channel

import (
	"context"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// EmailSender relays the alert over SMTP.
type EmailSender struct {
	cfg    EmailConfig
	logger *zap.SugaredLogger
}

func NewEmailSender(cfg EmailConfig, logger *zap.SugaredLogger) *EmailSender {
	return &EmailSender{cfg: cfg, logger: logger}
}

func (s *EmailSender) Channel() Channel { return ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, to string, msg Message) Result {
	if !s.cfg.Enabled {
		return failure(to, "EMAIL_DISABLED")
	}

	m := mail.NewMsg()
	from := firstNonEmpty(s.cfg.From, s.cfg.Username)
	if s.cfg.FromName != "" {
		if err := m.FromFormat(s.cfg.FromName, from); err != nil {
			return failure(to, err.Error())
		}
	} else if err := m.From(from); err != nil {
		return failure(to, err.Error())
	}
	if err := m.To(to); err != nil {
		return failure(to, err.Error())
	}
	m.Subject(msg.Subject)

	lines := []string{"ALERTA de " + firstNonEmpty(msg.SenderName, "contato") + "!"}
	if msg.Body != "" {
		lines = append(lines, "", msg.Body)
	}
	if msg.MapsURL != "" {
		lines = append(lines, "", "Localizacao: "+msg.MapsURL)
	}
	if msg.TrackingURL != "" {
		lines = append(lines, "Acompanhe em tempo real: "+msg.TrackingURL)
	}
	m.SetBodyString(mail.TypeTextPlain, strings.Join(lines, "\n"))

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return failure(to, err.Error())
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Errorf("email send failed to=%s host=%s err=%v", to, s.cfg.Host, err)
		return failure(to, err.Error())
	}
	return Result{OK: true, To: to}
}
