package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"

	"sos-service/pkg/consul"
)

// Contact is one registered emergency contact row as the account service
// returns it. Status is "pending" until the contact confirms opt-in.
type Contact struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// Resolved carries the per-channel recipient lists for one verified account.
type Resolved struct {
	UserID   string
	FullName string

	Emails     []string
	SMS        []string
	WhatsApp   []string
	Telegram   []string // chat ids, opt-in channel: active contacts only
	PushTokens []string // FCM device tokens, opt-in as well
}

// HasAny reports whether any channel has at least one recipient.
func (r *Resolved) HasAny() bool {
	return len(r.Emails)+len(r.SMS)+len(r.WhatsApp)+len(r.Telegram)+len(r.PushTokens) > 0
}

type ContactService interface {
	Resolve(ctx context.Context, userEmail string) (*Resolved, error)
}

type contactService struct {
	consulClient *consulapi.Client
	serviceName  string
	httpClient   *http.Client
}

func NewContactService(consulClient *consulapi.Client, serviceName string) ContactService {
	return &contactService{
		consulClient: consulClient,
		serviceName:  serviceName,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

type contactsResponse struct {
	Data struct {
		UserID     string    `json:"user_id"`
		FullName   string    `json:"full_name"`
		Verified   bool      `json:"email_verified"`
		Contacts   []Contact `json:"contacts"`
		PushTokens []string  `json:"push_tokens"`
	} `json:"data"`
}

// Resolve looks the account up by email and buckets its contacts per
// channel. Telegram and push require an active (opted-in) contact; the
// other channels are used in pending state too, since a safety alert
// should not wait on a confirmation click.
func (s *contactService) Resolve(ctx context.Context, userEmail string) (*Resolved, error) {
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	if userEmail == "" {
		return nil, fmt.Errorf("user email is required")
	}

	base, err := consul.ServiceAddress(s.consulClient, s.serviceName)
	if err != nil {
		return nil, fmt.Errorf("resolve contact service: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/users/contacts?email=%s", base, url.QueryEscape(userEmail))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if token, ok := ctx.Value(tokenKey{}).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contact service returned %d", resp.StatusCode)
	}

	var body contactsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode contact response: %w", err)
	}
	if !body.Data.Verified {
		return nil, nil
	}

	out := &Resolved{
		UserID:     body.Data.UserID,
		FullName:   body.Data.FullName,
		PushTokens: body.Data.PushTokens,
	}
	for _, c := range body.Data.Contacts {
		switch c.Type {
		case "email":
			if usable(c) {
				out.Emails = append(out.Emails, c.Value)
			}
		case "sms":
			if usable(c) {
				out.SMS = append(out.SMS, c.Value)
			}
		case "whatsapp":
			if usable(c) {
				out.WhatsApp = append(out.WhatsApp, c.Value)
			}
		case "telegram":
			if c.Status == "active" {
				out.Telegram = append(out.Telegram, c.Value)
			}
		}
	}
	return out, nil
}

func usable(c Contact) bool {
	return c.Status == "pending" || c.Status == "active"
}

type tokenKey struct{}

// WithToken threads the caller's bearer token to the contact service call.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}
