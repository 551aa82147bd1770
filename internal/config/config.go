// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// status server, logging, database, the upstream hijack feed, the SMS gateway,
// the push provider, escalation timing, retention, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "hijack-notifier")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and parameterizes the tracking store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite path (sqlite driver)
	DSN    string // connection string (postgres driver)
}

// FeedConfig configures the upstream GraphQL hijack feed.
type FeedConfig struct {
	URL          string // FEED_URL
	InsecureTLS  bool   // FEED_INSECURE_TLS (self-signed dashboards)
	JWTSecret    string // JWT_SECRET used to sign the bearer token
	DefaultEmail string // DEFAULT_EMAIL of the user whose role is claimed
}

// SMSConfig holds the gateway endpoint and credentials.
type SMSConfig struct {
	BaseURL    string
	Username   string
	Password   string
	Originator string
}

// PushConfig holds the push provider settings.
type PushConfig struct {
	CredentialsPath string // service account JSON; empty disables push
	Topic           string
}

// EscalationConfig holds the timing of the poll and escalation steps.
type EscalationConfig struct {
	PollInterval time.Duration // fixed tick cadence
	PollSkew     time.Duration // extra lookback added to each window
	GracePeriod  time.Duration // push -> SMS wait
	DLRDelay     time.Duration // SMS -> delivery report wait
	CallTimeout  time.Duration // bound on every external call
}

// RetentionConfig holds the sweep horizon and schedule.
type RetentionConfig struct {
	Horizon  time.Duration // entries older than this are purged
	Cron     string        // standard 5-field cron spec
	Timezone string        // IANA zone for Cron
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	GinMode           string        // debug|release|test
	APIBasePath       string        // base path for API routes

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	DB         DBConfig
	Feed       FeedConfig
	SMS        SMSConfig
	Push       PushConfig
	Escalation EscalationConfig
	Retention  RetentionConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		APIBasePath:       normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "notifications.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Feed: FeedConfig{
			URL:          getenv("FEED_URL", "https://localhost/api/graphql"),
			InsecureTLS:  getbool("FEED_INSECURE_TLS", false),
			JWTSecret:    getenv("JWT_SECRET", ""),
			DefaultEmail: getenv("DEFAULT_EMAIL", ""),
		},
		SMS: SMSConfig{
			BaseURL:    getenv("SMS_BASE_URL", "https://www.prosms.gr/secure/api/index.php"),
			Username:   getenv("SMS_USERNAME", ""),
			Password:   getenv("SMS_PASSWORD", ""),
			Originator: getenv("SMS_ORIGINATOR", "ARTEMIS"),
		},
		Push: PushConfig{
			CredentialsPath: getenv("PUSH_CREDENTIALS_PATH", ""),
			Topic:           getenv("PUSH_TOPIC", "hjtopic"),
		},
		Escalation: EscalationConfig{
			PollInterval: getdur("POLL_INTERVAL", 10*time.Second),
			PollSkew:     getdur("POLL_SKEW", 0),
			GracePeriod:  getdur("SMS_GRACE_PERIOD", 20*time.Minute),
			DLRDelay:     getdur("DLR_DELAY", 20*time.Minute),
			CallTimeout:  getdur("CALL_TIMEOUT", 15*time.Second),
		},
		Retention: RetentionConfig{
			Horizon:  getdur("RETENTION", 10*24*time.Hour),
			Cron:     getenv("SWEEP_CRON", "0 0 * * *"),
			Timezone: getenv("SWEEP_TZ", "UTC"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "hijack-notifier"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN must not be empty for postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.Feed.URL) == "" {
		return cfg, errors.New("FEED_URL must not be empty")
	}
	if strings.TrimSpace(cfg.SMS.BaseURL) == "" {
		return cfg, errors.New("SMS_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.Push.Topic) == "" {
		return cfg, errors.New("PUSH_TOPIC must not be empty")
	}
	if cfg.Escalation.PollInterval <= 0 {
		return cfg, errors.New("POLL_INTERVAL must be > 0")
	}
	if cfg.Escalation.PollSkew < 0 {
		return cfg, errors.New("POLL_SKEW must be >= 0")
	}
	if cfg.Escalation.GracePeriod < 0 || cfg.Escalation.DLRDelay < 0 {
		return cfg, errors.New("SMS_GRACE_PERIOD and DLR_DELAY must be >= 0")
	}
	if cfg.Escalation.CallTimeout <= 0 {
		return cfg, errors.New("CALL_TIMEOUT must be > 0")
	}
	if cfg.Retention.Horizon <= 0 {
		return cfg, errors.New("RETENTION must be > 0")
	}
	if strings.TrimSpace(cfg.Retention.Cron) == "" {
		return cfg, errors.New("SWEEP_CRON must not be empty")
	}
	if _, err := time.LoadLocation(cfg.Retention.Timezone); err != nil {
		return cfg, errors.New("SWEEP_TZ must be a valid IANA time zone")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
