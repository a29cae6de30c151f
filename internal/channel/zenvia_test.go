package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeJSONBody(req *http.Request, out any) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(out)
}

func zenviaTestConfig() ZenviaConfig {
	return ZenviaConfig{
		APIToken:    "test-token",
		BaseURL:     "https://api.zenvia.test/v2",
		CallbackURL: "https://sos.example.com/webhooks/zenvia",
		SMSFrom:     "sender-sms",
		WAFrom:      "sender-wa",
		WATemplate:  "tpl-1",
	}
}

func TestCleanMSISDN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 (11) 99999-0000", "5511999990000"},
		{"5511999990000", "5511999990000"},
		{"11999990000", "5511999990000"},
		{"(11) 3333-4444", "551133334444"},
		{"999", "999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanMSISDN(tt.in), "input %q", tt.in)
	}
}

func TestSMSSenderSuccess(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var got zenviaMessage
	httpmock.RegisterResponder(http.MethodPost, "https://api.zenvia.test/v2/channels/sms/messages",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "test-token", req.Header.Get("X-API-Token"))
			require.NoError(t, decodeJSONBody(req, &got))
			return httpmock.NewJsonResponse(200, map[string]string{"id": "m-1"})
		})

	snd := NewSMSSender(zenviaTestConfig(), client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "11999990000", Message{
		SenderName:  "Ana",
		Body:        "preciso de ajuda",
		MapsURL:     "https://maps.google.com/?q=-23.55,-46.63",
		TrackingURL: "https://sos.example.com/t/abc",
	})

	assert.True(t, res.OK)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "5511999990000", got.To)
	assert.Equal(t, "sender-sms", got.From)
	assert.Equal(t, "https://sos.example.com/webhooks/zenvia", got.CallbackURL)
	require.Len(t, got.Contents, 1)
	assert.Contains(t, got.Contents[0].Text, "ALERTA de Ana")
	assert.Contains(t, got.Contents[0].Text, "https://sos.example.com/t/abc")
}

func TestSMSSenderProviderRejection(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://api.zenvia.test/v2/channels/sms/messages",
		httpmock.NewStringResponder(401, `{"message":"invalid token"}`))

	snd := NewSMSSender(zenviaTestConfig(), client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "11999990000", Message{SenderName: "Ana"})

	assert.False(t, res.OK)
	assert.Equal(t, 401, res.Status)
	assert.Equal(t, "HTTP 401", res.Reason)
	assert.Contains(t, res.Response, "invalid token")
}

func TestSMSSenderNoToken(t *testing.T) {
	cfg := zenviaTestConfig()
	cfg.APIToken = ""

	snd := NewSMSSender(cfg, &http.Client{}, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "11999990000", Message{})

	assert.False(t, res.OK)
	assert.Equal(t, "NO_TOKEN", res.Reason)
}

func TestWhatsAppSenderTemplate(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var got zenviaMessage
	httpmock.RegisterResponder(http.MethodPost, "https://api.zenvia.test/v2/channels/whatsapp/messages",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, decodeJSONBody(req, &got))
			return httpmock.NewJsonResponse(200, map[string]string{"id": "m-2"})
		})

	snd := NewWhatsAppSender(zenviaTestConfig(), client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "11999990000", Message{
		SenderName:  "Ana",
		MapsURL:     "https://maps.google.com/?q=-23.55,-46.63",
		TrackingURL: "https://sos.example.com/t/abc",
	})

	require.True(t, res.OK)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "template", got.Contents[0].Type)
	assert.Equal(t, "tpl-1", got.Contents[0].TemplateID)
	assert.Equal(t, map[string]string{
		"1": "Ana",
		"2": "https://maps.google.com/?q=-23.55,-46.63",
		"3": "https://sos.example.com/t/abc",
	}, got.Contents[0].Fields)
}

func TestWhatsAppSenderSimpleTextFallback(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var got zenviaMessage
	httpmock.RegisterResponder(http.MethodPost, "https://api.zenvia.test/v2/channels/whatsapp/messages",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, decodeJSONBody(req, &got))
			return httpmock.NewJsonResponse(200, map[string]string{"id": "m-3"})
		})

	cfg := zenviaTestConfig()
	cfg.WASimple = true

	snd := NewWhatsAppSender(cfg, client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "11999990000", Message{SenderName: "Ana", Body: "socorro"})

	require.True(t, res.OK)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "text", got.Contents[0].Type)
	assert.Contains(t, got.Contents[0].Text, "socorro")
}

func TestWhatsAppSenderMissingFrom(t *testing.T) {
	cfg := zenviaTestConfig()
	cfg.WAFrom = ""

	snd := NewWhatsAppSender(cfg, &http.Client{}, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "11999990000", Message{})

	assert.False(t, res.OK)
	assert.Equal(t, "WA_FROM_MISSING", res.Reason)
}

func TestSanitizeSMS(t *testing.T) {
	assert.Equal(t, `alerta - "ok"...`, sanitizeSMS("alerta – “ok”…"))
}
