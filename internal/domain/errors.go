package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Conflict codes.
const (
	CodeSeatUnavailable = "seat_unavailable"
	CodeHoldExpired     = "hold_expired"
)

// Validation codes.
const (
	CodePassengerCountMismatch = "passenger_count_mismatch"
	CodeInvalidField           = "invalid_field"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Code  string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError is an expected, caller-recoverable race: a seat already taken
// or a hold that is gone. Callers retry with a fresh hold.
type ConflictError struct {
	Code     string
	Resource string
	Msg      string
	Seats    []string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && len(e.Seats) > 0:
		return fmt.Sprintf("%s: %s", e.Msg, strings.Join(e.Seats, ","))
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// AuthorizationError never carries trip or seat detail.
type AuthorizationError struct {
	Err error
}

func (e AuthorizationError) Error() string { return "not authorized" }

func (e AuthorizationError) Unwrap() error { return e.Err }

// InvalidTransitionError carries the current state so callers can resync.
type InvalidTransitionError struct {
	Entity  string
	Current string
	Action  string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %s", e.Action, e.Entity, e.Current)
}

type NotCancellableError struct {
	BookingID string
	Reason    string
}

func (e NotCancellableError) Error() string {
	if e.Reason == "" {
		return "booking cannot be cancelled"
	}
	return "booking cannot be cancelled: " + e.Reason
}

// InternalError marks infrastructure failures (store unavailable, driver errors).
type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func SeatUnavailable(seats []string) ConflictError {
	return ConflictError{Code: CodeSeatUnavailable, Resource: "seat", Msg: "seat already taken", Seats: seats}
}

func HoldExpired() ConflictError {
	return ConflictError{Code: CodeHoldExpired, Resource: "hold", Msg: "hold expired or released, hold the seats again"}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// conflictCode returns the conflict code of err, or "" when err is not a conflict.
func conflictCode(err error) string {
	var target ConflictError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}

func IsSeatUnavailable(err error) bool { return conflictCode(err) == CodeSeatUnavailable }

func IsHoldExpired(err error) bool { return conflictCode(err) == CodeHoldExpired }

func IsAuthorization(err error) bool {
	var target AuthorizationError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsNotCancellable(err error) bool {
	var target NotCancellableError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
