package scrapeclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/resilience"
)

// Vendor event types a run's completion webhook fires on.
var webhookEvents = []string{"ACTOR.RUN.SUCCEEDED", "ACTOR.RUN.FAILED"}

// webhookSecretHeader must match the header the webhook endpoint checks.
const webhookSecretHeader = "X-Webhook-Secret"

// webhookPayloadTemplate flattens the vendor's default callback body into
// {eventType, actorRunId, actorId}.
const webhookPayloadTemplate = `{"eventType": {{eventType}}, "actorRunId": {{eventData.actorRunId}}, "actorId": {{eventData.actorId}}, "eventData": {{eventData}}}`

// Runner starts remote scrape runs and downloads their results.
type Runner interface {
	StartRun(ctx context.Context, jobType entity.JobType, input any, webhookURL string) (string, error)
	FetchItems(ctx context.Context, runID string) ([]json.RawMessage, error)
}

// Client talks to the scrape vendor's REST API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	actors  config.ActorConfig
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	secret  string
}

// New builds a vendor client. A nil httpClient gets one bounded by cfg.Timeout.
func New(cfg config.VendorConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("scrape-vendor", "request")

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		actors:  cfg.Actors,
		// The vendor allows bursts but throttles sustained request rates per token.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		retry:   retry,
	}
}

// WithRetry overrides the retry policy, mainly for tests.
func (c *Client) WithRetry(cfg resilience.RetryConfig) *Client {
	c.retry = cfg
	return c
}

// WithWebhookSecret makes every registered webhook send secret in the
// X-Webhook-Secret header.
func (c *Client) WithWebhookSecret(secret string) *Client {
	c.secret = secret
	return c
}

// ActorFor returns the vendor actor that serves a job type.
func (c *Client) ActorFor(jobType entity.JobType) (string, error) {
	var actor string
	switch jobType {
	case entity.JobSocialBrand, entity.JobSocialCompetitor:
		actor = c.actors.SocialProfile
	case entity.JobMarketplaceReviews:
		actor = c.actors.MarketplaceReviews
	case entity.JobCompetitorAds:
		actor = c.actors.CompetitorAds
	}
	if actor == "" {
		return "", eris.Errorf("no actor configured for job type %q", jobType)
	}
	return actor, nil
}

// StartRun starts an actor run with the given input and returns the vendor run id.
// When webhookURL is set the run reports completion there.
func (c *Client) StartRun(ctx context.Context, jobType entity.JobType, input any, webhookURL string) (string, error) {
	actor, err := c.ActorFor(jobType)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(input)
	if err != nil {
		return "", eris.Wrap(err, "marshal run input")
	}

	endpoint := fmt.Sprintf("%s/acts/%s/runs", c.baseURL, url.PathEscape(strings.ReplaceAll(actor, "/", "~")))
	if webhookURL != "" {
		hooks, err := encodeWebhooks(webhookURL, c.secret)
		if err != nil {
			return "", err
		}
		endpoint += "?webhooks=" + url.QueryEscape(hooks)
	}

	payload, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", eris.Wrapf(err, "start %s run", jobType)
	}

	runID := gjson.GetBytes(payload, "data.id").String()
	if runID == "" {
		return "", eris.Errorf("start %s run: response carried no run id", jobType)
	}
	return runID, nil
}

// FetchItems resolves the run's default dataset and downloads every item.
// A run without a dataset yields no items.
func (c *Client) FetchItems(ctx context.Context, runID string) ([]json.RawMessage, error) {
	run, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/actor-runs/%s", c.baseURL, url.PathEscape(runID)), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "get run %s", runID)
	}

	datasetID := gjson.GetBytes(run, "data.defaultDatasetId").String()
	if datasetID == "" {
		return nil, nil
	}

	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/datasets/%s/items?format=json&clean=true", c.baseURL, url.PathEscape(datasetID)), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "get dataset %s items", datasetID)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, eris.Wrapf(err, "decode dataset %s items", datasetID)
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, eris.Wrap(err, "create vendor request")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "vendor request failed")
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "read vendor response")
		}

		if resp.StatusCode >= 400 {
			err := eris.Errorf("vendor error (%d): %s", resp.StatusCode, extractVendorError(payload))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return payload, nil
	})
}

func encodeWebhooks(requestURL, secret string) (string, error) {
	hook := map[string]any{
		"eventTypes":      webhookEvents,
		"requestUrl":      requestURL,
		"payloadTemplate": webhookPayloadTemplate,
	}
	if secret != "" {
		headers, err := json.Marshal(map[string]string{webhookSecretHeader: secret})
		if err != nil {
			return "", eris.Wrap(err, "marshal webhook headers")
		}
		hook["headersTemplate"] = string(headers)
	}
	hooks := []map[string]any{hook}
	raw, err := json.Marshal(hooks)
	if err != nil {
		return "", eris.Wrap(err, "marshal webhooks")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func extractVendorError(payload []byte) string {
	if msg := gjson.GetBytes(payload, "error.message").String(); msg != "" {
		return msg
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return "unknown error"
	}
	return text
}

var _ Runner = (*Client)(nil)
