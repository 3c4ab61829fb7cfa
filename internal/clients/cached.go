package clients

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aura-events/registration-service/internal/models"
	"github.com/aura-events/registration-service/internal/registrations"
)

// CachedEventCatalog caches team lookups for a short TTL. Events are always
// read through so in-progress checks see current dates.
type CachedEventCatalog struct {
	next  registrations.EventCatalogGateway
	teams *gocache.Cache
}

var (
	_ registrations.EventCatalogGateway  = (*CachedEventCatalog)(nil)
	_ registrations.TeamCacheInvalidator = (*CachedEventCatalog)(nil)
)

// NewCachedEventCatalog wraps next with a team cache of the given TTL.
func NewCachedEventCatalog(next registrations.EventCatalogGateway, ttl time.Duration) *CachedEventCatalog {
	return &CachedEventCatalog{
		next:  next,
		teams: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedEventCatalog) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	return c.next.GetEvent(ctx, eventID)
}

func (c *CachedEventCatalog) GetTeamMembers(ctx context.Context, eventID int64) ([]models.TeamMember, error) {
	key := strconv.FormatInt(eventID, 10)
	if v, ok := c.teams.Get(key); ok {
		if members, ok := v.([]models.TeamMember); ok {
			return cloneMembers(members), nil
		}
	}
	members, err := c.next.GetTeamMembers(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c.teams.SetDefault(key, cloneMembers(members))
	return members, nil
}

// Invalidate drops the cached team of an event. The service calls it before
// re-checking a requester the cached team does not list as a manager.
func (c *CachedEventCatalog) Invalidate(eventID int64) {
	c.teams.Delete(strconv.FormatInt(eventID, 10))
}

func cloneMembers(in []models.TeamMember) []models.TeamMember {
	out := make([]models.TeamMember, len(in))
	copy(out, in)
	return out
}
