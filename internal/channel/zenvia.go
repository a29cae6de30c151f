package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ZenviaConfig is the shared provider configuration for the SMS and
// WhatsApp gateways (both live behind the same API).
type ZenviaConfig struct {
	APIToken    string
	BaseURL     string
	CallbackURL string
	SMSFrom     string
	WAFrom      string
	WATemplate  string
	WASimple    bool
}

type zenviaClient struct {
	cfg    ZenviaConfig
	client *http.Client
	logger *zap.SugaredLogger
}

type zenviaContent struct {
	Type       string            `json:"type"`
	Text       string            `json:"text,omitempty"`
	TemplateID string            `json:"templateId,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

type zenviaMessage struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Contents    []zenviaContent `json:"contents"`
	CallbackURL string          `json:"callbackUrl,omitempty"`
}

func (z *zenviaClient) post(ctx context.Context, channelPath string, msg zenviaMessage) Result {
	if z.cfg.APIToken == "" {
		return failure(msg.To, "NO_TOKEN")
	}
	msg.CallbackURL = z.cfg.CallbackURL

	body, err := json.Marshal(msg)
	if err != nil {
		return failure(msg.To, err.Error())
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", z.cfg.BaseURL, channelPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(msg.To, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Token", z.cfg.APIToken)

	resp, err := z.client.Do(req)
	if err != nil {
		z.logger.Errorf("zenvia %s send failed to=%s err=%v", channelPath, msg.To, err)
		return failure(msg.To, err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	res := Result{OK: ok, Status: resp.StatusCode, Response: string(raw), To: msg.To}
	if !ok {
		res.Reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		z.logger.Errorf("zenvia %s rejected to=%s status=%d resp=%s", channelPath, msg.To, resp.StatusCode, string(raw))
	}
	return res
}

// SMSSender delivers a plain-text alert through the SMS gateway.
type SMSSender struct {
	zenviaClient
}

func NewSMSSender(cfg ZenviaConfig, client *http.Client, logger *zap.SugaredLogger) *SMSSender {
	return &SMSSender{zenviaClient{cfg: cfg, client: client, logger: logger}}
}

func (s *SMSSender) Channel() Channel { return ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, to string, msg Message) Result {
	lines := []string{}
	if msg.SenderName != "" {
		lines = append(lines, "ALERTA de "+msg.SenderName)
	} else {
		lines = append(lines, "ALERTA")
	}
	situation := strings.TrimSpace(msg.Body)
	if situation == "" {
		situation = "SOS pessoal"
	}
	lines = append(lines, "Situacao: "+situation)
	if msg.MapsURL != "" {
		lines = append(lines, "Localizacao (mapa): "+msg.MapsURL)
	} else {
		lines = append(lines, "Localizacao: nao informada")
	}
	if msg.TrackingURL != "" {
		lines = append(lines, "Rastreamento: "+msg.TrackingURL)
	}
	text := truncate(sanitizeSMS(strings.Join(lines, "\n")), 700)

	return s.post(ctx, "sms", zenviaMessage{
		From:     s.cfg.SMSFrom,
		To:       CleanMSISDN(to),
		Contents: []zenviaContent{{Type: "text", Text: text}},
	})
}

// WhatsAppSender delivers either the approved alert template
// (name / map link / tracking link) or a plain text fallback.
type WhatsAppSender struct {
	zenviaClient
}

func NewWhatsAppSender(cfg ZenviaConfig, client *http.Client, logger *zap.SugaredLogger) *WhatsAppSender {
	return &WhatsAppSender{zenviaClient{cfg: cfg, client: client, logger: logger}}
}

func (s *WhatsAppSender) Channel() Channel { return ChannelWhatsApp }

func (s *WhatsAppSender) Send(ctx context.Context, to string, msg Message) Result {
	if s.cfg.WAFrom == "" {
		return failure(to, "WA_FROM_MISSING")
	}

	var content zenviaContent
	if !s.cfg.WASimple && s.cfg.WATemplate != "" {
		content = zenviaContent{
			Type:       "template",
			TemplateID: s.cfg.WATemplate,
			Fields: map[string]string{
				"1": msg.SenderName,
				"2": msg.MapsURL,
				"3": msg.TrackingURL,
			},
		}
	} else {
		lines := []string{"🚨 ALERTA de " + firstNonEmpty(msg.SenderName, "contato")}
		if msg.Body != "" {
			lines = append(lines, "Situação: "+msg.Body)
		}
		if msg.MapsURL != "" {
			lines = append(lines, "Localização (mapa): "+msg.MapsURL)
		}
		if msg.TrackingURL != "" {
			lines = append(lines, "Rastreamento: "+msg.TrackingURL)
		}
		content = zenviaContent{Type: "text", Text: truncate(strings.Join(lines, "\n"), 700)}
	}

	return s.post(ctx, "whatsapp", zenviaMessage{
		From:     s.cfg.WAFrom,
		To:       CleanMSISDN(to),
		Contents: []zenviaContent{content},
	})
}

var nonDigits = regexp.MustCompile(`\D`)

// CleanMSISDN strips formatting and prefixes the default country code
// when a local number is given, matching what the gateway expects.
func CleanMSISDN(s string) string {
	digits := nonDigits.ReplaceAllString(s, "")
	if strings.HasPrefix(digits, "55") && len(digits) >= 12 {
		return digits
	}
	if len(digits) >= 10 && !strings.HasPrefix(digits, "55") {
		return "55" + digits
	}
	return digits
}

var smsSanitizer = strings.NewReplacer(
	"–", "-", "—", "-", "…", "...",
	"’", "'", "“", `"`, "”", `"`,
)

func sanitizeSMS(s string) string {
	return smsSanitizer.Replace(s)
}
