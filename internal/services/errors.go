// Package services holds the escalation pipeline: the hijack poller, the
// per-run escalation controller, the retention sweeper and the delivery
// service behind the acknowledgement API.
//
// This file centralizes service-level error values so handlers can map them
// to HTTP status codes with errors.Is.
package services

import "errors"

var (
	// ErrEntryNotFound indicates that no tracking entry matches the given
	// hijack key, run token and user.
	ErrEntryNotFound = errors.New("tracking entry not found")

	// ErrInvalidAck is returned when an acknowledgement is missing one of
	// hijack key, run token or user id.
	ErrInvalidAck = errors.New("hijack_key, run_token and user_id are required")

	// ErrEmptyHijackKey is returned when a listing is requested without a key.
	ErrEmptyHijackKey = errors.New("hijack key is empty")
)
