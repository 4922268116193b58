package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/resilience"
)

// EmailSender delivers one HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// WhatsAppSender delivers one text message to an E.164 number.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, message string) error
}

const defaultSendTimeout = 15 * time.Second

// ResendClient sends email through the Resend REST API.
type ResendClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	from    string
	retry   resilience.RetryConfig
}

// NewResendClient returns nil when no API key is configured.
func NewResendClient(cfg config.NotifyConfig, httpClient *http.Client) *ResendClient {
	if cfg.ResendAPIKey == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultSendTimeout}
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("resend", "send email")
	return &ResendClient{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.ResendBaseURL, "/"),
		apiKey:  cfg.ResendAPIKey,
		from:    cfg.ResendFromEmail,
		retry:   retry,
	}
}

// SendEmail posts the message to /emails.
func (c *ResendClient) SendEmail(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(map[string]any{
		"from":    c.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return eris.Wrap(err, "encode email")
	}

	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "create email request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return send(c.http, req, "resend")
	})
}

// GupshupClient sends WhatsApp messages through the Gupshup API.
type GupshupClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	appName string
	source  string
	retry   resilience.RetryConfig
}

// NewGupshupClient returns nil when no API key is configured.
func NewGupshupClient(cfg config.NotifyConfig, httpClient *http.Client) *GupshupClient {
	if cfg.GupshupAPIKey == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultSendTimeout}
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("gupshup", "send message")
	return &GupshupClient{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.GupshupBaseURL, "/"),
		apiKey:  cfg.GupshupAPIKey,
		appName: cfg.GupshupAppName,
		source:  cfg.GupshupSourceNumber,
		retry:   retry,
	}
}

// SendWhatsApp posts a form-encoded message to /msg. The destination is sent
// without its leading plus sign.
func (c *GupshupClient) SendWhatsApp(ctx context.Context, to, message string) error {
	form := url.Values{
		"channel":     {"whatsapp"},
		"source":      {c.source},
		"destination": {strings.TrimPrefix(to, "+")},
		"message":     {message},
		"src.name":    {c.appName},
	}
	encoded := form.Encode()

	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/msg", strings.NewReader(encoded))
		if err != nil {
			return eris.Wrap(err, "create whatsapp request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("apikey", c.apiKey)
		return send(c.http, req, "gupshup")
	})
}

func send(client *http.Client, req *http.Request, provider string) error {
	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "%s request failed", provider)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 300 {
		return nil
	}

	msg := gjson.GetBytes(payload, "message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(payload))
	}
	err = eris.Errorf("%s error (%d): %s", provider, resp.StatusCode, msg)
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}
