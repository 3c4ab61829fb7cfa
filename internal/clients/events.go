package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aura-events/registration-service/internal/models"
	"github.com/aura-events/registration-service/internal/registrations"
)

// Layouts accepted for event times. The event service may send zone-less
// local date-times.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// eventResponse mirrors the event service payload before time parsing.
type eventResponse struct {
	ID                 int64                          `json:"id"`
	Name               string                         `json:"name"`
	Description        string                         `json:"description"`
	StartDateTime      string                         `json:"startDateTime"`
	EndDateTime        string                         `json:"endDateTime"`
	Location           string                         `json:"location"`
	OwnerID            int64                          `json:"ownerId"`
	RegistrationStatus models.EventRegistrationStatus `json:"registrationStatus"`
	IsLimited          bool                           `json:"isLimited"`
	ParticipantLimit   int                            `json:"participantLimit"`
}

// EventClient is the EventCatalogGateway backed by the event service.
type EventClient struct {
	baseClient
	loc *time.Location
}

var _ registrations.EventCatalogGateway = (*EventClient)(nil)

// NewEventClient creates an event service client. Zone-less times are read in
// loc; nil means time.Local.
func NewEventClient(baseURL string, httpClient *http.Client, loc *time.Location) *EventClient {
	if loc == nil {
		loc = time.Local
	}
	return &EventClient{baseClient: newBaseClient("event-service", baseURL, httpClient), loc: loc}
}

// GetEvent returns an event by id.
func (c *EventClient) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var resp eventResponse
	err := c.do(ctx, request{
		operation: "get_event",
		method:    http.MethodGet,
		path:      fmt.Sprintf("/events/%d", eventID),
		out:       &resp,
	})
	if err != nil {
		return nil, err
	}
	start, err := parseEventTime(resp.StartDateTime, c.loc)
	if err != nil {
		return nil, fmt.Errorf("event %d start: %w", eventID, err)
	}
	end, err := parseEventTime(resp.EndDateTime, c.loc)
	if err != nil {
		return nil, fmt.Errorf("event %d end: %w", eventID, err)
	}
	return &models.Event{
		ID:                 resp.ID,
		Name:               resp.Name,
		Description:        resp.Description,
		StartDateTime:      start,
		EndDateTime:        end,
		Location:           resp.Location,
		OwnerID:            resp.OwnerID,
		RegistrationStatus: resp.RegistrationStatus,
		IsLimited:          resp.IsLimited,
		ParticipantLimit:   resp.ParticipantLimit,
	}, nil
}

// GetTeamMembers returns the organizing team of an event.
func (c *EventClient) GetTeamMembers(ctx context.Context, eventID int64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := c.do(ctx, request{
		operation: "get_team_members",
		method:    http.MethodGet,
		path:      fmt.Sprintf("/events/orgs/%d", eventID),
		out:       &members,
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func parseEventTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	var lastErr error
	for _, layout := range eventTimeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
