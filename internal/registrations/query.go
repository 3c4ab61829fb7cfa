package registrations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-events/registration-service/internal/models"
)

// Get returns the public view of a registration.
func (s *Service) Get(ctx context.Context, id int64) (models.PublicRegistration, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return models.PublicRegistration{}, err
	}
	s.logger.Debug("sent registration", zap.Int64("registration_id", id))
	return reg.ToPublic(), nil
}

// ListByEvent returns one page of an event's registrations, oldest first.
func (s *Service) ListByEvent(ctx context.Context, eventID int64, page Page) ([]models.PublicRegistration, error) {
	page = page.Normalize()
	regs, err := s.store.ListByEvent(ctx, eventID, page)
	if err != nil {
		return nil, fmt.Errorf("list registrations of event %d: %w", eventID, err)
	}
	out := make([]models.PublicRegistration, 0, len(regs))
	for i := range regs {
		out = append(out, regs[i].ToPublic())
	}
	s.logger.Debug("sent registrations",
		zap.Int64("event_id", eventID), zap.Int("page", page.Page), zap.Int("size", page.Size))
	return out, nil
}

// ListByStatuses returns an event's registrations in any of statuses, oldest
// first. An empty status set yields an empty result.
func (s *Service) ListByStatuses(ctx context.Context, eventID int64, statuses []string) ([]models.StatusView, error) {
	parsed, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return []models.StatusView{}, nil
	}
	regs, err := s.store.ListByEventAndStatuses(ctx, eventID, parsed)
	if err != nil {
		return nil, fmt.Errorf("list registrations of event %d by status: %w", eventID, err)
	}
	out := make([]models.StatusView, 0, len(regs))
	for i := range regs {
		out = append(out, regs[i].ToStatusView())
	}
	return out, nil
}

// CountByStatus counts an event's registrations per status. Statuses with no
// registrations are omitted.
func (s *Service) CountByStatus(ctx context.Context, eventID int64) (map[string]int64, error) {
	grouped, err := s.store.CountGroupedByStatus(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count registrations of event %d: %w", eventID, err)
	}
	out := make(map[string]int64, len(grouped))
	for st, n := range grouped {
		if n > 0 {
			out[st.String()] = n
		}
	}
	return out, nil
}

// CountByStatuses counts an event's registrations in any of statuses.
func (s *Service) CountByStatuses(ctx context.Context, eventID int64, statuses []string) (int, error) {
	parsed, err := parseStatuses(statuses)
	if err != nil {
		return 0, err
	}
	if len(parsed) == 0 {
		return 0, nil
	}
	n, err := s.store.CountByEventAndStatuses(ctx, eventID, parsed)
	if err != nil {
		return 0, fmt.Errorf("count registrations of event %d by status: %w", eventID, err)
	}
	return n, nil
}

// StatusOf returns the status of the registration linking userID to eventID.
func (s *Service) StatusOf(ctx context.Context, eventID, userID int64) (models.Status, error) {
	reg, err := s.store.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return "", fmt.Errorf("find registration of user %d for event %d: %w", userID, eventID, err)
	}
	if reg == nil {
		return "", notFoundf("Registration from user id=%d to event id=%d not found.", userID, eventID)
	}
	return reg.Status, nil
}

func parseStatuses(in []string) ([]models.Status, error) {
	out := make([]models.Status, 0, len(in))
	seen := make(map[models.Status]struct{}, len(in))
	for _, raw := range in {
		st, err := models.ParseStatus(raw)
		if err != nil {
			return nil, validationf("Unknown status: %s", raw)
		}
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out, nil
}
