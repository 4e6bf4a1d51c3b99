// Package service implements the booking core: slot holds and their
// promotion into bookings, phone verification codes, management links and
// the cleanup sweeper.  Public operations never return Go errors; they
// return result values whose Outcome tells the transport layer which
// status to answer with.  Storage and gateway failures are logged here and
// surface only as a generic message.
package service

import (
	"context"

	"github.com/iliyamo/salon-booking/internal/notify"
)

// Outcome classifies the result of a service operation.
type Outcome int

const (
	OutcomeOK           Outcome = iota
	OutcomeInvalid              // malformed input
	OutcomeConflict             // state does not allow the operation
	OutcomeUnauthorized         // bad, expired or retired credential
	OutcomeRateLimited          // caller must wait
	OutcomeInternal             // storage or gateway failure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeConflict:
		return "conflict"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Messages returned to callers.
const (
	MsgInternal        = "something went wrong, please try again"
	MsgSlotTaken       = "slot taken"
	MsgHoldNotFound    = "hold not found"
	MsgHoldNotActive   = "hold is no longer active"
	MsgHoldExpired     = "hold has expired"
	MsgInvalidCode     = "invalid or expired code"
	MsgTooManyAttempts = "too many attempts, request a new code"
	MsgOtpCooldown     = "please wait before requesting a new code"
	MsgOtpTryLater     = "too many codes requested, try again later"
	MsgInvalidLink     = "this link is invalid or has expired"
	MsgAlreadyCancel   = "already cancelled"
	MsgCompleted       = "cannot cancel a completed booking"
)

// Result is the outcome of an operation with no payload.
type Result struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Outcome Outcome `json:"-"`
}

func ok(msg string) Result { return Result{Success: true, Message: msg, Outcome: OutcomeOK} }

func fail(o Outcome, msg string) Result { return Result{Message: msg, Outcome: o} }

// Notifier delivers booking texts to customers.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}
