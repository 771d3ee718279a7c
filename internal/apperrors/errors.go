// Package apperrors defines the sentinel errors shared across the service.
// Handlers translate them into HTTP status codes with errors.Is, so lower
// layers wrap them with fmt.Errorf("...: %w", err) rather than inventing new
// error strings.
package apperrors

import "errors"

// ErrEventNotFound is returned when the requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrUserNotFound is returned when the requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrRegistrationNotFound is returned when no live registration exists for
// the (event, user) pair.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrAlreadyRegistered is returned when the user already holds a registered
// or waitlisted row for the event. Terminal, never retried.
var ErrAlreadyRegistered = errors.New("user already registered or waitlisted for this event")

// ErrEventNotActive is returned when registering against a completed or
// cancelled event.
var ErrEventNotActive = errors.New("event is not active")

// ErrCapacityExceeded is returned when the event is full and has no waitlist.
// The event state is left untouched.
var ErrCapacityExceeded = errors.New("event is at capacity and has no waitlist")

// ErrVersionConflict signals that a conditional write lost against a
// concurrent mutation of the same event. The engine retries the whole
// read-decide-write loop; it never escapes the engine directly.
var ErrVersionConflict = errors.New("event was modified concurrently")

// ErrRetryExhausted is surfaced when the bounded retry budget for version
// conflicts or transient store failures is used up.
var ErrRetryExhausted = errors.New("operation failed after retries")

// ErrInvariantViolation indicates corrupt stored state: a gap or duplicate in
// the waitlist position sequence, or counters that disagree with the rows.
// Treated as an internal error, never retried.
var ErrInvariantViolation = errors.New("registration state invariant violated")

// ErrUnavailable wraps transient store failures (network, timeouts) once the
// retry budget is exhausted.
var ErrUnavailable = errors.New("store unavailable")
