package registrations

import (
	"context"
	"math"

	"github.com/aura-events/registration-service/internal/models"
)

// DefaultPageSize and MaxPageSize bound ListByEvent pages.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a 0-based page of Size rows.
type Page struct {
	Page int
	Size int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return p.Page * p.Size
}

// Normalize applies defaults and caps. Page is capped so Offset cannot overflow.
func (p Page) Normalize() Page {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if maxPage := math.MaxInt / p.Size; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Store persists registrations. Lookups return (nil, nil) when nothing matches.
// Implementations give at least last-write-wins semantics per row.
type Store interface {
	FindByID(ctx context.Context, id int64) (*models.Registration, error)
	FindByEventAndUser(ctx context.Context, eventID, userID int64) (*models.Registration, error)
	// FindEarliestByStatus returns the registration with the lowest CreatedAt in
	// status. A nil eventID searches across all events.
	FindEarliestByStatus(ctx context.Context, status models.Status, eventID *int64) (*models.Registration, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	CountByEventAndStatuses(ctx context.Context, eventID int64, statuses []models.Status) (int, error)
	ListByEvent(ctx context.Context, eventID int64, page Page) ([]models.Registration, error)
	ListByEventAndStatuses(ctx context.Context, eventID int64, statuses []models.Status) ([]models.Registration, error)
	CountGroupedByStatus(ctx context.Context, eventID int64) (map[models.Status]int64, error)
	// Save inserts reg when reg.ID is zero, assigning the ID, and updates it otherwise.
	Save(ctx context.Context, reg *models.Registration) error
	DeleteByID(ctx context.Context, id int64) error
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
