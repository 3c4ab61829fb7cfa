package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-events/registration-service/internal/models"
)

// PromotionScope selects which WAITING registrations a withdrawal may promote.
type PromotionScope string

const (
	// PromotionScopeEvent promotes the earliest WAITING registration of the
	// withdrawn registration's event.
	PromotionScopeEvent PromotionScope = "event"
	// PromotionScopeGlobal promotes the earliest WAITING registration of any event.
	PromotionScopeGlobal PromotionScope = "global"
)

// Account payload used when provisioning a registrant in the user service.
const (
	autoAccountName     = "autoUser"
	autoAccountPassword = "autoPassword"
	autoAccountAboutMe  = "Auto registration from registration service."
)

// Options tune the lifecycle engine. Zero values fall back to defaults.
type Options struct {
	GatewayTimeout time.Duration
	PromotionScope PromotionScope
	Retry          RetryPolicy
	Secrets        *SecretGenerator
	Compensator    Compensator
	Now            func() time.Time
}

// NewRegistration is a registrant's sign-up request.
type NewRegistration struct {
	EventID int64
	Name    string
	Email   string
	Phone   string
}

// ContactUpdate carries credentials and the contact fields to overwrite.
// Nil fields are left unchanged.
type ContactUpdate struct {
	ID     int64
	Secret string
	Name   *string
	Email  *string
	Phone  *string
}

// StatusChange is an organizer's status decision. Reason is required for REJECTED.
type StatusChange struct {
	ID     int64
	Status string
	Reason *string
}

// Service runs the registration lifecycle against the store and the user and
// event services.
type Service struct {
	store  Store
	users  UserAccountGateway
	events EventCatalogGateway
	logger *zap.Logger

	gatewayTimeout time.Duration
	scope          PromotionScope
	retry          RetryPolicy
	secrets        *SecretGenerator
	compensator    Compensator
	now            func() time.Time
}

// NewService creates the lifecycle engine.
func NewService(store Store, users UserAccountGateway, events EventCatalogGateway, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:          store,
		users:          users,
		events:         events,
		logger:         logger,
		gatewayTimeout: opts.GatewayTimeout,
		scope:          opts.PromotionScope,
		retry:          opts.Retry,
		secrets:        opts.Secrets,
		compensator:    opts.Compensator,
		now:            opts.Now,
	}
	if s.scope == "" {
		s.scope = PromotionScopeEvent
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = DefaultRetryPolicy
	}
	if s.secrets == nil {
		s.secrets = NewSeededSecretGenerator(uint64(time.Now().UnixNano()))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create registers a registrant for an event and provisions their account.
// The returned secret is never retrievable again.
func (s *Service) Create(ctx context.Context, req NewRegistration) (creds models.Credentials, err error) {
	defer func() { recordOperation("create", err) }()

	reg := &models.Registration{
		EventID:   req.EventID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Secret:    s.secrets.Next(),
		Status:    models.StatusPending,
		CreatedAt: s.now(),
	}

	var userID int64
	sg := newSaga("create registration", s.logger)
	sg.onCompensationFailure = func(ctx context.Context, _ string, _ error) {
		s.enqueueAccountDeletion(ctx, userID, "registration was not persisted")
	}
	sg.then("check event", func(ctx context.Context) error {
		_, err := s.getEvent(ctx, req.EventID)
		return err
	}).thenUndoable("create account", func(ctx context.Context) error {
		id, err := s.createAccount(ctx, models.NewAccount{
			Name:     autoAccountName,
			Email:    reg.Email,
			Password: autoAccountPassword,
			AboutMe:  autoAccountAboutMe,
		})
		if err != nil {
			return err
		}
		userID = id
		reg.UserID = &id
		return nil
	}, func(ctx context.Context) error {
		return s.deleteAccount(ctx, userID)
	}).then("persist", func(ctx context.Context) error {
		return s.store.Save(ctx, reg)
	})

	if err = sg.run(ctx); err != nil {
		return models.Credentials{}, err
	}

	s.logger.Info("registration added",
		zap.Int64("registration_id", reg.ID),
		zap.Int64("event_id", reg.EventID),
		zap.Int64("user_id", userID))
	return models.Credentials{ID: reg.ID, Secret: reg.Secret}, nil
}

// UpdateContactData overwrites the supplied contact fields of an authenticated
// registration and keeps the linked account's email in step.
func (s *Service) UpdateContactData(ctx context.Context, req ContactUpdate) (view models.PublicRegistration, err error) {
	defer func() { recordOperation("update", err) }()

	reg, err := s.authenticate(ctx, req.ID, req.Secret)
	if err != nil {
		return view, err
	}

	oldEmail := reg.Email
	if req.Name != nil {
		reg.Name = *req.Name
	}
	if req.Email != nil {
		reg.Email = *req.Email
	}
	if req.Phone != nil {
		reg.Phone = *req.Phone
	}

	sg := newSaga("update registration", s.logger)
	if reg.Email != oldEmail && reg.HasUser() {
		userID, newEmail := *reg.UserID, reg.Email
		sg.thenUndoable("update account", func(ctx context.Context) error {
			return s.updateAccount(ctx, userID, newEmail)
		}, func(ctx context.Context) error {
			return s.updateAccount(ctx, userID, oldEmail)
		})
	}
	sg.then("persist", func(ctx context.Context) error {
		return s.store.Save(ctx, reg)
	})
	if err = sg.run(ctx); err != nil {
		return view, err
	}

	s.logger.Info("registration data updated", zap.Int64("registration_id", reg.ID))
	return reg.ToPublic(), nil
}

// Withdraw deletes an authenticated registration. Withdrawing an APPROVED
// registration frees a slot: the earliest WAITING registration goes back to
// PENDING. The registrant's account is deleted with their last registration.
func (s *Service) Withdraw(ctx context.Context, creds models.Credentials) (err error) {
	defer func() { recordOperation("withdraw", err) }()

	reg, err := s.authenticate(ctx, creds.ID, creds.Secret)
	if err != nil {
		return err
	}

	sg := newSaga("withdraw registration", s.logger)

	if reg.Status == models.StatusApproved {
		ev, err := s.getEvent(ctx, reg.EventID)
		if err != nil {
			return err
		}
		if ev.InProgress(s.now()) {
			return validationf("You can't delete registration. Event id=%d is already started.", reg.EventID)
		}

		var promoted *models.Registration
		sg.thenUndoable("promote waitlist", func(ctx context.Context) error {
			return s.retry.do(ctx, func(ctx context.Context) error {
				var err error
				promoted, err = s.promoteWaiting(ctx, reg.EventID)
				return err
			})
		}, func(ctx context.Context) error {
			if promoted == nil {
				return nil
			}
			return s.demote(ctx, promoted.ID)
		})
	}

	accountDeleted := false
	if reg.HasUser() {
		userID := *reg.UserID
		sg.then("delete account", func(ctx context.Context) error {
			return s.retry.do(ctx, func(ctx context.Context) error {
				n, err := s.store.CountByUser(ctx, userID)
				if err != nil {
					return fmt.Errorf("count registrations of user %d: %w", userID, err)
				}
				if n != 1 {
					return nil
				}
				if err := s.deleteAccount(ctx, userID); err != nil {
					return err
				}
				accountDeleted = true
				return nil
			})
		})
	}

	sg.then("delete registration", func(ctx context.Context) error {
		err := s.store.DeleteByID(ctx, reg.ID)
		if err == nil || !accountDeleted {
			return err
		}
		// The account is gone; finish the withdrawal instead of undoing it.
		if s.compensator == nil {
			return err
		}
		if qErr := s.compensator.EnqueueRegistrationDeletion(context.WithoutCancel(ctx), reg.ID); qErr != nil {
			s.logger.Error("enqueue registration deletion failed",
				zap.Int64("registration_id", reg.ID), zap.Error(qErr))
			return err
		}
		s.logger.Warn("registration deletion deferred to worker",
			zap.Int64("registration_id", reg.ID), zap.Error(err))
		return nil
	})

	if err = sg.run(ctx); err != nil {
		return err
	}

	s.logger.Info("registration deleted", zap.Int64("registration_id", reg.ID))
	return nil
}

// ChangeStatus moves a registration through the lifecycle on behalf of the
// event owner or a MANAGER of the event's team.
func (s *Service) ChangeStatus(ctx context.Context, requesterID int64, req StatusChange) (view models.StatusView, err error) {
	defer func() { recordOperation("change_status", err) }()

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return view, validationf("Unknown status: %s", req.Status)
	}

	reg, err := s.load(ctx, req.ID)
	if err != nil {
		return view, err
	}

	if !models.IsTransitionValid(reg.Status, status) {
		return view, conflictf("Registration (id=%d) with status=%s can't be transitioned to %s.",
			reg.ID, reg.Status, status)
	}

	ev, err := s.getEvent(ctx, reg.EventID)
	if err != nil {
		return view, err
	}

	if err = s.authorize(ctx, requesterID, ev); err != nil {
		return view, err
	}

	if status == models.StatusRejected && req.Reason == nil {
		return view, validationf("Reason can't be null with status REJECTED")
	}

	reg.Status = status
	if err = s.store.Save(ctx, reg); err != nil {
		return view, fmt.Errorf("save registration %d: %w", reg.ID, err)
	}

	s.logger.Info("registration status updated",
		zap.Int64("registration_id", reg.ID),
		zap.String("status", status.String()),
		zap.Int64("requester_id", requesterID))

	view = reg.ToStatusView()
	if status == models.StatusRejected {
		reason := *req.Reason
		view.Reason = &reason
	}
	return view, nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find registration %d: %w", id, err)
	}
	if reg == nil {
		return nil, notFoundf("Registration with id=%d not found.", id)
	}
	return reg, nil
}

// authenticate loads the registration and checks the presented secret.
func (s *Service) authenticate(ctx context.Context, id int64, secret string) (*models.Registration, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !secretMatches(reg.Secret, secret) {
		return nil, authenticationf("Incorrect password for registration with id=%d", id)
	}
	return reg, nil
}

func (s *Service) authorize(ctx context.Context, requesterID int64, ev *models.Event) error {
	if ev.OwnerID == requesterID {
		return nil
	}
	ok, err := s.isManager(ctx, requesterID, ev.ID)
	if err != nil {
		return err
	}
	if !ok {
		if cache, cached := s.events.(TeamCacheInvalidator); cached {
			cache.Invalidate(ev.ID)
			if ok, err = s.isManager(ctx, requesterID, ev.ID); err != nil {
				return err
			}
		}
	}
	if !ok {
		return authenticationf("Requester (id=%d) can't modify status of event (id=%d).", requesterID, ev.ID)
	}
	return nil
}

func (s *Service) isManager(ctx context.Context, requesterID, eventID int64) (bool, error) {
	var members []models.TeamMember
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		members, err = s.events.GetTeamMembers(ctx, eventID)
		return err
	})
	if err != nil && !errors.Is(err, ErrRemoteNotFound) {
		return false, fmt.Errorf("get team of event %d: %w", eventID, err)
	}
	for _, m := range members {
		if m.UserID == requesterID && m.Role == models.TeamRoleManager {
			return true, nil
		}
	}
	return false, nil
}

// promoteWaiting moves the earliest WAITING registration in scope to PENDING.
// It returns nil when the waitlist is empty.
func (s *Service) promoteWaiting(ctx context.Context, eventID int64) (*models.Registration, error) {
	var scope *int64
	if s.scope == PromotionScopeEvent {
		scope = &eventID
	}
	waiting, err := s.store.FindEarliestByStatus(ctx, models.StatusWaiting, scope)
	if err != nil {
		return nil, fmt.Errorf("find waiting registration: %w", err)
	}
	if waiting == nil {
		return nil, nil
	}
	waiting.Status = models.StatusPending
	if err := s.store.Save(ctx, waiting); err != nil {
		return nil, fmt.Errorf("promote registration %d: %w", waiting.ID, err)
	}
	promotionsTotal.Inc()
	s.logger.Info("registration promoted from WAITING to PENDING",
		zap.Int64("registration_id", waiting.ID), zap.Int64("event_id", waiting.EventID))
	return waiting, nil
}

// demote puts a promoted registration back on the waitlist. The row is re-read
// so concurrent contact edits survive; a row that already left PENDING is kept.
func (s *Service) demote(ctx context.Context, id int64) error {
	cur, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload promoted registration %d: %w", id, err)
	}
	if cur == nil || cur.Status != models.StatusPending {
		return nil
	}
	cur.Status = models.StatusWaiting
	return s.store.Save(ctx, cur)
}

func (s *Service) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.gatewayTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) getEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var ev *models.Event
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		ev, err = s.events.GetEvent(ctx, eventID)
		return err
	})
	if errors.Is(err, ErrRemoteNotFound) || (err == nil && ev == nil) {
		return nil, notFoundf("Event (id=%d) doesn't exist.", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}
	return ev, nil
}

func (s *Service) createAccount(ctx context.Context, account models.NewAccount) (int64, error) {
	var id int64
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.users.CreateAccount(ctx, account)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

// updateAccount tolerates an account the user service no longer knows.
func (s *Service) updateAccount(ctx context.Context, userID int64, email string) error {
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.users.UpdateAccount(ctx, userID, email)
	})
	if err != nil && !errors.Is(err, ErrRemoteNotFound) {
		return fmt.Errorf("update account %d: %w", userID, err)
	}
	return nil
}

// deleteAccount tolerates an account that is already gone.
func (s *Service) deleteAccount(ctx context.Context, userID int64) error {
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.users.DeleteAccount(ctx, userID)
	})
	if err != nil && !errors.Is(err, ErrRemoteNotFound) {
		return fmt.Errorf("delete account %d: %w", userID, err)
	}
	return nil
}

func (s *Service) enqueueAccountDeletion(ctx context.Context, userID int64, reason string) {
	if s.compensator == nil {
		s.logger.Error("orphaned account left in user service", zap.Int64("user_id", userID))
		return
	}
	if err := s.compensator.EnqueueAccountDeletion(ctx, userID, reason); err != nil {
		s.logger.Error("enqueue account deletion failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.logger.Warn("account deletion deferred to worker", zap.Int64("user_id", userID))
}
