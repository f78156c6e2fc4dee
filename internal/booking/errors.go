// Package booking owns the reservation lifecycle: it composes the
// pricing engine and the inventory ledger into the submit/decide flow
// and is the only place terminal transitions are applied.  The
// sentinel errors below are shared by the store implementations and
// the HTTP layer so that failure modes can be told apart with
// errors.Is.
package booking

import "errors"

// ErrNotFound is returned when a reservation code, event id or buyer
// profile does not resolve to a row.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller is not allowed to act on
// the resource: a buyer cancelling someone else's reservation, or a
// non-admin reaching the decision gateway.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyFinalized is returned when a terminal transition is
// applied to a reservation that is no longer pending.  It is a no-op
// signal, not a failure: the reservation's current state accompanies
// it and inventory is never touched again.
var ErrAlreadyFinalized = errors.New("reservation already finalized")

// ErrRosterMismatch is returned when the named attendees do not match
// the reservation's requested boy/girl counts.  Checked at submit
// time and again before approval.
var ErrRosterMismatch = errors.New("attendee roster does not match requested counts")

// ErrInvalidName is returned when an attendee name does not split
// into at least a first name and a surname.
var ErrInvalidName = errors.New("name must include first name and surname")

// ErrInvalidGender is returned when a gender value is neither "boy"
// nor "girl".
var ErrInvalidGender = errors.New("gender must be boy or girl")

// ErrBuyerBlocked is returned when a blocked buyer attempts to submit
// a booking.
var ErrBuyerBlocked = errors.New("buyer is blocked")

// ErrEventClosed is returned when quoting or booking against an event
// that is not open.
var ErrEventClosed = errors.New("event is closed")

// ErrUnknownTemplate is returned for a reject_template action whose
// template key is not one of the configured rejection reasons.
var ErrUnknownTemplate = errors.New("unknown rejection template")

// ErrMissingReason is returned for a reject_custom action with an
// empty reason.
var ErrMissingReason = errors.New("custom rejection requires a reason")

// ErrUnknownAction is returned when the decision gateway receives an
// action outside approve/reject_template/reject_custom/cancel.
var ErrUnknownAction = errors.New("unknown decision action")
