package models

import (
	"time"
)

// Registration is a registrant's request to attend an event.
type Registration struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"userId,omitempty"`
	EventID   int64     `json:"eventId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Secret    string    `json:"-"`
	Status    Status    `json:"registrationStatus"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials identify a registration for self-service calls.
// Returned once on creation; the secret travels as "password" on the wire.
type Credentials struct {
	ID     int64  `json:"id"`
	Secret string `json:"password"`
}

// PublicRegistration is the registrant-facing view. It never carries id or secret.
type PublicRegistration struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	EventID int64  `json:"eventId"`
}

// StatusView is the organizer-facing view with the lifecycle status.
// Reason is only set in the response to a REJECTED status change.
type StatusView struct {
	Name               string    `json:"name,omitempty"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	EventID            int64     `json:"eventId,omitempty"`
	RegistrationStatus Status    `json:"registrationStatus,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	Reason             *string   `json:"reason,omitempty"`
}

// ToPublic converts Registration to PublicRegistration.
func (r *Registration) ToPublic() PublicRegistration {
	return PublicRegistration{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		EventID: r.EventID,
	}
}

// ToStatusView converts Registration to StatusView without a reason.
func (r *Registration) ToStatusView() StatusView {
	return StatusView{
		Name:               r.Name,
		Email:              r.Email,
		Phone:              r.Phone,
		EventID:            r.EventID,
		RegistrationStatus: r.Status,
		CreatedAt:          r.CreatedAt,
	}
}

// HasUser reports whether the linked account was provisioned.
func (r *Registration) HasUser() bool {
	return r.UserID != nil
}
