package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/teamcast/auth"
	coretransport "github.com/kilianp07/teamcast/core/transport"
)

const (
	defaultWhatsAppBaseURL = "https://graph.facebook.com"
	defaultWhatsAppVersion = "v20.0"
	maxResponseBytes       = 1 << 20
)

// WhatsAppConfig configures the WhatsApp Cloud API transport.
type WhatsAppConfig struct {
	BaseURL       string        `json:"base_url"`
	APIVersion    string        `json:"api_version"`
	PhoneNumberID string        `json:"phone_number_id"`
	AccessToken   string        `json:"access_token"`
	OAuth         auth.Conf     `json:"oauth"`
	Timeout       time.Duration `json:"timeout"`
}

func (c *WhatsAppConfig) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultWhatsAppBaseURL
	}
	if c.APIVersion == "" {
		c.APIVersion = defaultWhatsAppVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// WhatsApp sends text messages through the WhatsApp Cloud API.
type WhatsApp struct {
	endpoint string
	auth     auth.Authorizer
	client   *http.Client
}

// NewWhatsApp validates cfg and returns the transport.
func NewWhatsApp(cfg WhatsAppConfig) (*WhatsApp, error) {
	cfg.setDefaults()
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp: phone_number_id is required")
	}
	authz, err := auth.New(cfg.OAuth, cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: %w", err)
	}
	return &WhatsApp{
		endpoint: fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		auth:     authz,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (w *WhatsApp) Name() string { return "whatsapp" }

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// Send posts one text message. Non-2xx answers are returned as
// ProviderError carrying the response body.
func (w *WhatsApp) Send(ctx context.Context, to, body string) (coretransport.Response, error) {
	payload, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{Body: body},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := w.auth.SetAuthHeader(req); err != nil {
		return nil, fmt.Errorf("whatsapp auth: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("whatsapp read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if cc, ok := w.auth.(*auth.ClientCred); ok {
			cc.Invalidate()
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &coretransport.ProviderError{Provider: w.Name(), Status: resp.StatusCode, Payload: data}
	}
	return data, nil
}
