package domain

import (
	"errors"
	"fmt"
)

var ErrMessageNotFound = errors.New("message not found")

// IllegalTransitionError is returned when a requested state change is not in
// the transition table. It points at double processing and must not be masked.
type IllegalTransitionError struct {
	MessageID int64
	From      MessageStatus
	To        MessageStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition for message %d: %s -> %s", e.MessageID, e.From, e.To)
}

type InvalidScheduleError struct {
	ScheduleID int64
	Reason     string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule %d: %s", e.ScheduleID, e.Reason)
}

type GatewayErrorKind string

const (
	GatewayValidation      GatewayErrorKind = "validation"
	GatewayChannelNotReady GatewayErrorKind = "channel_not_ready"
	GatewayProvider        GatewayErrorKind = "provider"
	GatewayUnreachable     GatewayErrorKind = "unreachable"
	GatewayTimeout         GatewayErrorKind = "timeout"
)

// GatewayError is the typed failure surfaced by the channel gateway client.
type GatewayError struct {
	Kind       GatewayErrorKind
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// GatewayErrorKindOf returns the kind of a gateway error, or "" when err is
// not one.
func GatewayErrorKindOf(err error) GatewayErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// IsSystemicGatewayError reports failures that say the channel as a whole is
// unusable right now and the message was never handed over. Timeouts are not
// included: the provider may have accepted the message.
func IsSystemicGatewayError(err error) bool {
	switch GatewayErrorKindOf(err) {
	case GatewayChannelNotReady, GatewayUnreachable:
		return true
	}
	return false
}
