package domain

import "strconv"

// SMSStatus is the SMS state of a tracking entry.
//
//	-3 Unknown   initial, not yet submitted
//	-2 Rejected  gateway refused the submission (terminal)
//	-1 Accepted  gateway accepted the submission
//	 0 Failed    delivery report: failed
//	 1 Delivered delivery report: delivered
//	 2 Received  delivery report: received/other
//
// Failed, Delivered and Received are reachable only from Accepted.
type SMSStatus int

const (
	SMSUnknown   SMSStatus = -3
	SMSRejected  SMSStatus = -2
	SMSAccepted  SMSStatus = -1
	SMSFailed    SMSStatus = 0
	SMSDelivered SMSStatus = 1
	SMSReceived  SMSStatus = 2
)

// String returns a lowercase label, used for metrics and logs.
func (s SMSStatus) String() string {
	switch s {
	case SMSUnknown:
		return "unknown"
	case SMSRejected:
		return "rejected"
	case SMSAccepted:
		return "accepted"
	case SMSFailed:
		return "failed"
	case SMSDelivered:
		return "delivered"
	case SMSReceived:
		return "received"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// IsDeliveryReport reports whether s is one of the delivery-report outcomes.
func (s SMSStatus) IsDeliveryReport() bool {
	return s == SMSFailed || s == SMSDelivered || s == SMSReceived
}

// CanTransition reports whether an entry may move from s to next.
func (s SMSStatus) CanTransition(next SMSStatus) bool {
	switch s {
	case SMSUnknown:
		return next == SMSAccepted || next == SMSRejected
	case SMSAccepted:
		return next.IsDeliveryReport()
	default:
		return false
	}
}
