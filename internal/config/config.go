package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// ActorConfig maps each scrape job type to the vendor actor that serves it.
type ActorConfig struct {
	SocialProfile      string
	MarketplaceReviews string
	CompetitorAds      string
}

// VendorConfig holds settings for the external scrape job vendor.
type VendorConfig struct {
	APIToken     string
	BaseURL      string
	Actors       ActorConfig
	ResultsLimit int
	AdsCountry   string
	Timeout      time.Duration
}

// OracleConfig holds settings for the text scoring and generation service.
type OracleConfig struct {
	APIKey    string
	Model     string
	FastModel string
	Timeout   time.Duration
}

// NotifyConfig holds settings for the email and WhatsApp delivery channels.
type NotifyConfig struct {
	ResendAPIKey        string
	ResendFromEmail     string
	ResendBaseURL       string
	GupshupAPIKey       string
	GupshupAppName      string
	GupshupSourceNumber string
	GupshupBaseURL      string
	AppURL              string
	DefaultPhoneRegion  string
	Timeout             time.Duration
}

// PipelineConfig bounds the batch analysis stages.
type PipelineConfig struct {
	BatchLimit  int
	Concurrency int
	RunMaxAge   time.Duration
}

// ScheduleConfig holds cron expressions for the external trigger.
type ScheduleConfig struct {
	Dispatch string
	Report   string
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string
	Format string
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL       string
	JWTSecret         string
	Port              string
	PublicBaseURL     string
	WebhookSecret     string
	RateLimitDispatch RateLimitConfig
	TokenTTL          time.Duration
	Vendor            VendorConfig
	Oracle            OracleConfig
	Notify            NotifyConfig
	Pipeline          PipelineConfig
	Schedule          ScheduleConfig
	Log               LogConfig
}

// maxBatchLimit caps a single analysis pass.
const maxBatchLimit = 100

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret"),
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		TokenTTL:      parseDuration(getEnv("JWT_TTL", "24h"), 24*time.Hour),
		Vendor: VendorConfig{
			APIToken: os.Getenv("APIFY_API_TOKEN"),
			BaseURL:  strings.TrimRight(getEnv("APIFY_BASE_URL", "https://api.apify.com/v2"), "/"),
			Actors: ActorConfig{
				SocialProfile:      getEnv("ACTOR_SOCIAL", "apify/instagram-scraper"),
				MarketplaceReviews: getEnv("ACTOR_MARKETPLACE", "axesso_data/amazon-reviews-scraper"),
				CompetitorAds:      getEnv("ACTOR_ADS", "apify/facebook-ads-library-scraper"),
			},
			ResultsLimit: getInt("SCRAPE_RESULTS_LIMIT", 50),
			AdsCountry:   getEnv("ADS_COUNTRY", "IN"),
			Timeout:      parseDuration(getEnv("VENDOR_TIMEOUT", "30s"), 30*time.Second),
		},
		Oracle: OracleConfig{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			Model:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			FastModel: getEnv("ANTHROPIC_FAST_MODEL", "claude-haiku-4-5-20251001"),
			Timeout:   parseDuration(getEnv("ORACLE_TIMEOUT", "45s"), 45*time.Second),
		},
		Notify: NotifyConfig{
			ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
			ResendFromEmail:     getEnv("RESEND_FROM_EMAIL", "Neo Intel <noreply@neointel.app>"),
			ResendBaseURL:       strings.TrimRight(getEnv("RESEND_BASE_URL", "https://api.resend.com"), "/"),
			GupshupAPIKey:       os.Getenv("GUPSHUP_API_KEY"),
			GupshupAppName:      os.Getenv("GUPSHUP_APP_NAME"),
			GupshupSourceNumber: os.Getenv("GUPSHUP_SOURCE_NUMBER"),
			GupshupBaseURL:      strings.TrimRight(getEnv("GUPSHUP_BASE_URL", "https://api.gupshup.io/sm/api/v1"), "/"),
			AppURL:              strings.TrimRight(getEnv("APP_URL", "https://neointel.app"), "/"),
			DefaultPhoneRegion:  strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "IN")),
			Timeout:             parseDuration(getEnv("NOTIFY_TIMEOUT", "15s"), 15*time.Second),
		},
		Pipeline: PipelineConfig{
			BatchLimit:  clamp(getInt("PIPELINE_BATCH_LIMIT", maxBatchLimit), 1, maxBatchLimit),
			Concurrency: clamp(getInt("PIPELINE_CONCURRENCY", 4), 1, 32),
			RunMaxAge:   parseDuration(getEnv("PIPELINE_RUN_MAX_AGE", "24h"), 24*time.Hour),
		},
		Schedule: ScheduleConfig{
			Dispatch: getEnv("DISPATCH_SCHEDULE", "0 6 * * 1"),
			Report:   getEnv("REPORT_SCHEDULE", "0 9 * * 1"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_DISPATCH", "5/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_DISPATCH value: %w", err)
	}
	cfg.RateLimitDispatch = rl

	for name, expr := range map[string]string{
		"DISPATCH_SCHEDULE": cfg.Schedule.Dispatch,
		"REPORT_SCHEDULE":   cfg.Schedule.Report,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", name, err)
		}
	}

	return cfg, nil
}

// WebhookURL is the completion callback registered with every vendor run.
func (c *Config) WebhookURL() string {
	return c.PublicBaseURL + "/webhooks/scrape"
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return fallback
	}
	return val
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
