package models

import (
	"time"
)

// EventRegistrationStatus is the catalog's registration window state for an event.
type EventRegistrationStatus string

const (
	EventRegistrationOpen      EventRegistrationStatus = "OPEN"
	EventRegistrationClosed    EventRegistrationStatus = "CLOSED"
	EventRegistrationSuspended EventRegistrationStatus = "SUSPENDED"
)

// Event is the subset of the event catalog's event the registration service reads.
type Event struct {
	ID                 int64                   `json:"id"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description,omitempty"`
	StartDateTime      time.Time               `json:"startDateTime"`
	EndDateTime        time.Time               `json:"endDateTime"`
	Location           string                  `json:"location,omitempty"`
	OwnerID            int64                   `json:"ownerId"`
	RegistrationStatus EventRegistrationStatus `json:"registrationStatus,omitempty"`
	IsLimited          bool                    `json:"isLimited"`
	ParticipantLimit   int                     `json:"participantLimit,omitempty"`
}

// InProgress reports whether now falls in [start, end).
func (e *Event) InProgress(now time.Time) bool {
	return !now.Before(e.StartDateTime) && now.Before(e.EndDateTime)
}

// TeamRole is a role granted on an event's organizing team.
type TeamRole string

const (
	TeamRoleExecutor TeamRole = "EXECUTOR"
	TeamRoleManager  TeamRole = "MANAGER"
)

// TeamMember links a user to an event's organizing team.
type TeamMember struct {
	UserID int64    `json:"userId"`
	Role   TeamRole `json:"role"`
}
