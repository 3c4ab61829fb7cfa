package models

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a registration.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusWaiting  Status = "WAITING"
	StatusRejected Status = "REJECTED"
)

// ErrUnknownStatus is returned when a status string is not one of the known values.
var ErrUnknownStatus = errors.New("unknown status")

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{StatusPending, StatusApproved, StatusWaiting, StatusRejected}

// transitions is the adjacency table of the lifecycle. REJECTED is terminal.
var transitions = map[Status]map[Status]struct{}{
	StatusPending:  {StatusApproved: {}, StatusRejected: {}},
	StatusApproved: {StatusWaiting: {}},
	StatusWaiting:  {StatusApproved: {}},
	StatusRejected: {},
}

// ParseStatus parses s strictly. Empty input is not a status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// ParseStatusOrDefault is ParseStatus with nil meaning PENDING.
// Only creation may default a status.
func ParseStatusOrDefault(s *string) (Status, error) {
	if s == nil {
		return StatusPending, nil
	}
	return ParseStatus(*s)
}

// IsTransitionValid reports whether from may move to to.
func IsTransitionValid(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsActive reports whether s is non-terminal.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusApproved || s == StatusWaiting
}

func (s Status) String() string {
	return string(s)
}
