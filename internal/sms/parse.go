package sms

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/sysutil"
)

// acceptedCode is the gateway's acceptance code for a queued message.
const acceptedCode = "1"

// Acceptance is the gateway's answer for one submitted phone number.
type Acceptance struct {
	Phone     string
	Status    domain.SMSStatus // SMSAccepted or SMSRejected
	MessageID string
}

// DeliveryReport is one delivery outcome returned by the status poll.
type DeliveryReport struct {
	MessageID string
	Status    domain.SMSStatus // SMSFailed, SMSDelivered or SMSReceived
}

// stripSpace removes every whitespace rune from s.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// pipeFields strips whitespace and splits a pipe-delimited body. An empty
// body yields no fields.
func pipeFields(raw string) []string {
	raw = stripSpace(raw)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "|")
}

// ParseAcceptances maps a bulk submission response onto phones. The body is
// a sequence of (code, messageID) pairs; the pair starting at index i belongs
// to phones[i/2]. Incomplete pairs, empty message ids and pairs beyond the
// phone list are skipped.
func ParseAcceptances(phones []string, raw string) []Acceptance {
	parts := pipeFields(raw)
	if len(parts)%2 == 1 {
		log.Warn().Str("component", "sms").Str("trailing", parts[len(parts)-1]).
			Msg("acceptance response has an incomplete trailing pair")
	}

	out := make([]Acceptance, 0, len(parts)/2)
	for i := 1; i < len(parts); i += 2 {
		code, id := parts[i-1], parts[i]
		idx := i / 2
		if idx >= len(phones) {
			log.Warn().Str("component", "sms").Int("pair", idx).Int("phones", len(phones)).
				Msg("acceptance pair has no matching phone")
			continue
		}
		if id == "" {
			log.Warn().Str("component", "sms").Str("phone", sysutil.MaskPhone(phones[idx])).
				Msg("acceptance pair without message id")
			continue
		}
		status := domain.SMSAccepted
		if code != acceptedCode {
			status = domain.SMSRejected
			log.Warn().Str("component", "sms").Str("code", code).Str("message_id", id).
				Msg("sms rejected by gateway")
		}
		out = append(out, Acceptance{Phone: phones[idx], Status: status, MessageID: id})
	}
	return out
}

// ParseDeliveryReports decodes a status poll body of (messageID, report)
// pairs. "f" is failed, "s" is delivered, anything else is received.
func ParseDeliveryReports(raw string) []DeliveryReport {
	parts := pipeFields(raw)
	out := make([]DeliveryReport, 0, len(parts)/2)
	for i := 1; i < len(parts); i += 2 {
		id := parts[i-1]
		if id == "" {
			continue
		}
		var status domain.SMSStatus
		switch parts[i] {
		case "f":
			status = domain.SMSFailed
		case "s":
			status = domain.SMSDelivered
		default:
			status = domain.SMSReceived
		}
		out = append(out, DeliveryReport{MessageID: id, Status: status})
	}
	return out
}
