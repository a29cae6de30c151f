package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender pushes the alert to a bot chat: an HTML message with an
// inline "open tracking" button, followed by a best-effort map pin.
type TelegramSender struct {
	token   string
	apiBase string
	client  *http.Client
	logger  *zap.SugaredLogger
}

func NewTelegramSender(token string, client *http.Client, logger *zap.SugaredLogger) *TelegramSender {
	return &TelegramSender{
		token:   token,
		apiBase: telegramAPIBase,
		client:  client,
		logger:  logger,
	}
}

func (s *TelegramSender) Channel() Channel { return ChannelTelegram }

func (s *TelegramSender) Send(ctx context.Context, chatID string, msg Message) Result {
	if s.token == "" {
		return failure(chatID, "TELEGRAM_MISSING_TOKEN")
	}

	text := s.renderHTML(msg)
	if strings.TrimSpace(text) == "" {
		return failure(chatID, "TEXT_EMPTY")
	}

	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", truncate(text, 4096))
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")
	if link := firstNonEmpty(msg.TrackingURL, msg.MapsURL); link != "" {
		markup, _ := json.Marshal(map[string]any{
			"inline_keyboard": [][]map[string]string{{{"text": "Abrir rastreamento", "url": link}}},
		})
		form.Set("reply_markup", string(markup))
	}

	res := s.post(ctx, "sendMessage", chatID, form)
	if res.OK && msg.HasCoords {
		// The pin is a courtesy; its outcome does not change the channel result.
		loc := url.Values{}
		loc.Set("chat_id", chatID)
		loc.Set("latitude", strconv.FormatFloat(msg.Lat, 'f', -1, 64))
		loc.Set("longitude", strconv.FormatFloat(msg.Lon, 'f', -1, 64))
		if pin := s.post(ctx, "sendLocation", chatID, loc); !pin.OK {
			s.logger.Warnf("telegram location pin failed chat=%s reason=%s", chatID, pin.Reason)
		}
	}
	return res
}

func (s *TelegramSender) post(ctx context.Context, method, chatID string, form url.Values) Result {
	endpoint := fmt.Sprintf("%s/bot%s/%s", s.apiBase, s.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(chatID, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return failure(chatID, err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	res := Result{OK: ok, Status: resp.StatusCode, Response: string(raw), To: chatID}
	if !ok {
		res.Reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		s.logger.Errorf("telegram %s failed chat=%s status=%d resp=%s", method, chatID, resp.StatusCode, string(raw))
	}
	return res
}

func (s *TelegramSender) renderHTML(msg Message) string {
	lines := []string{"<b>🚨 SOS - ALERTA DE EMERGÊNCIA</b>"}
	if msg.Body != "" {
		lines = append(lines, htmlEscape(msg.Body))
	}
	if msg.MapsURL != "" {
		lines = append(lines, htmlEscape(msg.MapsURL))
	}
	if msg.TrackingURL != "" {
		lines = append(lines, "Rastreamento: "+htmlEscape(msg.TrackingURL))
	}
	return strings.Join(lines, "\n")
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	// Back off so the cut never lands inside a multi-byte rune.
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
