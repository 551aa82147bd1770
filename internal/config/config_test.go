package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("GIN_MODE", "weird")        // will normalize to "release"
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")

	// Database
	t.Setenv("DB_DRIVER", "postgresql") // will normalize to "postgres"
	t.Setenv("DB_DSN", "host=db user=u dbname=artemis")

	// Feed / SMS / Push
	t.Setenv("FEED_URL", "https://dash/api/graphql")
	t.Setenv("FEED_INSECURE_TLS", "on")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DEFAULT_EMAIL", "admin@example.org")
	t.Setenv("SMS_USERNAME", "user")
	t.Setenv("SMS_PASSWORD", "pass")
	t.Setenv("SMS_ORIGINATOR", "NOC")
	t.Setenv("PUSH_CREDENTIALS_PATH", "/etc/sa.json")
	t.Setenv("PUSH_TOPIC", "alerts")

	// Escalation timing (bad grace falls back to default)
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("POLL_SKEW", "2s")
	t.Setenv("SMS_GRACE_PERIOD", "soon")
	t.Setenv("DLR_DELAY", "1m")
	t.Setenv("CALL_TIMEOUT", "3s")

	// Retention
	t.Setenv("RETENTION", "48h")
	t.Setenv("SWEEP_CRON", "30 3 * * *")
	t.Setenv("SWEEP_TZ", "Europe/Athens")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.GinMode != "release" ||
		cfg.APIBasePath != "/api/v1" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("logging unexpected: %+v", cfg)
	}

	// Database
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "host=db user=u dbname=artemis" {
		t.Fatalf("db unexpected: %+v", cfg.DB)
	}

	// Collaborators
	if cfg.Feed.URL != "https://dash/api/graphql" || !cfg.Feed.InsecureTLS ||
		cfg.Feed.JWTSecret != "s3cret" || cfg.Feed.DefaultEmail != "admin@example.org" {
		t.Fatalf("feed unexpected: %+v", cfg.Feed)
	}
	if cfg.SMS.Username != "user" || cfg.SMS.Password != "pass" || cfg.SMS.Originator != "NOC" ||
		cfg.SMS.BaseURL != "https://www.prosms.gr/secure/api/index.php" {
		t.Fatalf("sms unexpected: %+v", cfg.SMS)
	}
	if cfg.Push.CredentialsPath != "/etc/sa.json" || cfg.Push.Topic != "alerts" {
		t.Fatalf("push unexpected: %+v", cfg.Push)
	}

	// Escalation
	want := EscalationConfig{
		PollInterval: 5 * time.Second,
		PollSkew:     2 * time.Second,
		GracePeriod:  20 * time.Minute,
		DLRDelay:     time.Minute,
		CallTimeout:  3 * time.Second,
	}
	if cfg.Escalation != want {
		t.Fatalf("escalation unexpected: %+v", cfg.Escalation)
	}

	// Retention
	if cfg.Retention.Horizon != 48*time.Hour || cfg.Retention.Cron != "30 3 * * *" || cfg.Retention.Timezone != "Europe/Athens" {
		t.Fatalf("retention unexpected: %+v", cfg.Retention)
	}

	// Rate limiting (parse fallback to defaults)
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "notifications.db" {
		t.Fatalf("db defaults unexpected: %+v", cfg.DB)
	}
	if cfg.Escalation.PollInterval != 10*time.Second || cfg.Escalation.GracePeriod != 20*time.Minute || cfg.Escalation.DLRDelay != 20*time.Minute {
		t.Fatalf("escalation defaults unexpected: %+v", cfg.Escalation)
	}
	if cfg.Retention.Horizon != 10*24*time.Hour || cfg.Retention.Cron != "0 0 * * *" || cfg.Retention.Timezone != "UTC" {
		t.Fatalf("retention defaults unexpected: %+v", cfg.Retention)
	}
	if cfg.Push.Topic != "hjtopic" || cfg.Push.CredentialsPath != "" {
		t.Fatalf("push defaults unexpected: %+v", cfg.Push)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"postgres without DSN", map[string]string{"DB_DRIVER": "postgres"}, "DB_DSN"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mongo"}, "DB_DRIVER"},
		{"empty FEED_URL", map[string]string{"FEED_URL": " "}, "FEED_URL"},
		{"empty SMS_BASE_URL", map[string]string{"SMS_BASE_URL": " "}, "SMS_BASE_URL"},
		{"empty PUSH_TOPIC", map[string]string{"PUSH_TOPIC": " "}, "PUSH_TOPIC"},
		{"poll interval zero", map[string]string{"POLL_INTERVAL": "0s"}, "POLL_INTERVAL"},
		{"poll skew negative", map[string]string{"POLL_SKEW": "-1s"}, "POLL_SKEW"},
		{"grace negative", map[string]string{"SMS_GRACE_PERIOD": "-1m"}, "SMS_GRACE_PERIOD"},
		{"call timeout zero", map[string]string{"CALL_TIMEOUT": "0s"}, "CALL_TIMEOUT"},
		{"retention zero", map[string]string{"RETENTION": "0s"}, "RETENTION"},
		{"empty cron", map[string]string{"SWEEP_CRON": " "}, "SWEEP_CRON"},
		{"bad tz", map[string]string{"SWEEP_TZ": "Mars/Olympus"}, "SWEEP_TZ"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + config_strconv(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + config_strconv(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	// normalizeBasePath
	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// small helper (avoid fmt just for ints)
func config_strconv(i int) string { return string('a' + rune(i)) }

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	// No special env needed; defaults are valid.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
