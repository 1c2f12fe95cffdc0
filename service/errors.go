package service

import (
	"errors"
)

var (
	// ErrUserNotFound is returned when an operation targets an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPendingClaim is returned when approve/reject finds nothing to
	// resolve. Surfaced to the caller as a no-op, never fatal.
	ErrNoPendingClaim = errors.New("no pending payment claim")

	// ErrUnauthorized is returned when a capability check fails. No state
	// is changed.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNoLinkedGroup is returned when a group-dependent step runs with
	// no group configured. Callers degrade gracefully and report the gap
	// to admins instead of failing the whole operation.
	ErrNoLinkedGroup = errors.New("no linked group configured")

	// ErrRecipientUnreachable marks a permanent delivery failure (the
	// recipient blocked the bot or deleted their account). Transport
	// adapters wrap such failures with this sentinel; retrying is useless.
	ErrRecipientUnreachable = errors.New("recipient unreachable")
)

// DeliveryResult classifies the outcome of one notification delivery so
// batch fan-outs can aggregate outcomes instead of discarding them.
type DeliveryResult int

const (
	Delivered DeliveryResult = iota
	TransientFailure
	PermanentFailure
)

func (r DeliveryResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case TransientFailure:
		return "transient_failure"
	default:
		return "permanent_failure"
	}
}
