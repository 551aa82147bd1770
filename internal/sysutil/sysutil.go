// Package sysutil holds process-level helpers shared by the CLI and the
// long-running components: global logger setup and log-safe redaction of
// phone numbers.
package sysutil

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ConfigureLogger replaces the global zerolog logger with one writing to w,
// tagged with the service name. When pretty is set, output goes through a
// human-readable console writer instead of JSON.
func ConfigureLogger(w io.Writer, pretty bool, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	log.Logger = l
	return l
}

// FirstNonEmpty returns the first non-empty string from a variadic list.
// If all values are empty, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Digits-only phone pattern. Examples matched: "+30 6912345678",
// "212 555 1212", "(212) 555-1212", "3011234567".
var phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)

// RedactPhones replaces every phone-number-like run in s with a marker.
func RedactPhones(s string) string {
	if s == "" {
		return s
	}
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// MaskPhone keeps the last three digits of a phone number, e.g.
// "3011234567" -> "*******567". Short values are fully masked.
func MaskPhone(p string) string {
	p = strings.TrimSpace(p)
	if len(p) <= 3 {
		return strings.Repeat("*", len(p))
	}
	return strings.Repeat("*", len(p)-3) + p[len(p)-3:]
}

// MaskPhones applies MaskPhone to every element.
func MaskPhones(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = MaskPhone(p)
	}
	return out
}
