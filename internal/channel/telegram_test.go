package channel

import (
	"context"
	"net/http"
	"testing"
	"unicode/utf8"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTelegramSendMessageWithTrackingButton(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var form map[string][]string
	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottok/sendMessage",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			form = req.PostForm
			return httpmock.NewStringResponse(200, `{"ok":true}`), nil
		})
	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottok/sendLocation",
		httpmock.NewStringResponder(200, `{"ok":true}`))

	snd := NewTelegramSender("tok", client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "12345", Message{
		Body:        "socorro",
		MapsURL:     "https://maps.google.com/?q=-23.55,-46.63",
		TrackingURL: "https://sos.example.com/t/abc",
		Lat:         -23.55,
		Lon:         -46.63,
		HasCoords:   true,
	})

	assert.True(t, res.OK)
	require.NotNil(t, form)
	assert.Equal(t, "12345", form["chat_id"][0])
	assert.Equal(t, "HTML", form["parse_mode"][0])
	assert.Contains(t, form["text"][0], "socorro")
	assert.Contains(t, form["reply_markup"][0], "https://sos.example.com/t/abc")

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["POST https://api.telegram.org/bottok/sendLocation"],
		"coords trigger a follow-up map pin")
}

func TestTelegramLocationFailureDoesNotFailChannel(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottok/sendMessage",
		httpmock.NewStringResponder(200, `{"ok":true}`))
	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottok/sendLocation",
		httpmock.NewStringResponder(400, `{"ok":false}`))

	snd := NewTelegramSender("tok", client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "12345", Message{
		Body: "socorro", Lat: -23.55, Lon: -46.63, HasCoords: true,
	})

	assert.True(t, res.OK, "the pin is best-effort")
}

func TestTelegramRejectedMessage(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottok/sendMessage",
		httpmock.NewStringResponder(403, `{"ok":false,"description":"bot was blocked"}`))

	snd := NewTelegramSender("tok", client, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "12345", Message{Body: "socorro"})

	assert.False(t, res.OK)
	assert.Equal(t, 403, res.Status)
	assert.Contains(t, res.Response, "blocked")
}

func TestTelegramMissingToken(t *testing.T) {
	snd := NewTelegramSender("", &http.Client{}, zap.NewNop().Sugar())
	res := snd.Send(context.Background(), "12345", Message{Body: "socorro"})

	assert.False(t, res.OK)
	assert.Equal(t, "TELEGRAM_MISSING_TOKEN", res.Reason)
}

func TestTelegramHTMLEscape(t *testing.T) {
	assert.Equal(t, "a &amp;&lt;b&gt;", htmlEscape("a &<b>"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "curta", truncate("curta", 10))

	// "é" is two bytes; a cut at 6 would land in the middle of the
	// second one.
	got := truncate("ééé", 5)
	assert.Equal(t, "éé", got)
	assert.True(t, utf8.ValidString(got))

	// Four-byte emoji at the boundary.
	got = truncate("ajuda🆘", 8)
	assert.Equal(t, "ajuda", got)
	assert.True(t, utf8.ValidString(got))
}
