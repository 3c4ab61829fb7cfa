package registrations

import (
	"context"
	"errors"

	"github.com/aura-events/registration-service/internal/models"
)

// ErrRemoteNotFound is returned by gateways when the remote service answers
// that the resource does not exist.
var ErrRemoteNotFound = errors.New("remote resource not found")

// UserAccountGateway provisions and maintains the registrant's account in the
// user service.
type UserAccountGateway interface {
	CreateAccount(ctx context.Context, account models.NewAccount) (int64, error)
	UpdateAccount(ctx context.Context, userID int64, email string) error
	DeleteAccount(ctx context.Context, userID int64) error
}

// EventCatalogGateway reads events and their organizing teams from the event service.
type EventCatalogGateway interface {
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	GetTeamMembers(ctx context.Context, eventID int64) ([]models.TeamMember, error)
}

// TeamCacheInvalidator is implemented by event catalogs that cache team
// lookups. A denied status change drops the cached team and asks once more.
type TeamCacheInvalidator interface {
	Invalidate(eventID int64)
}

// Compensator queues compensating actions that could not be completed inline.
type Compensator interface {
	EnqueueAccountDeletion(ctx context.Context, userID int64, reason string) error
	EnqueueRegistrationDeletion(ctx context.Context, registrationID int64) error
}
