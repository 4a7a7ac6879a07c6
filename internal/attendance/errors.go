package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFields is returned when the participant id or name is blank.
	ErrMissingFields = errors.New("participant id and name are required")
	// ErrUnauthorized covers an invalid day token and a missing admin capability.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStore wraps every failure reported by the underlying store.
	ErrStore = errors.New("attendance store failure")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// Reason names why a check-in attempt was rejected.
type Reason string

const (
	ReasonMissingFields         Reason = "MissingFields"
	ReasonExpiredOrInvalidToken Reason = "ExpiredOrInvalidToken"
)

// Rejection is the terminal state of a refused check-in attempt.
type Rejection struct {
	Reason Reason
	err    error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("check-in rejected: %s", r.Reason)
}

func (r *Rejection) Unwrap() error { return r.err }

func reject(reason Reason, err error) error {
	return &Rejection{Reason: reason, err: err}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s -> %w", op, errors.Join(ErrStore, err))
}
