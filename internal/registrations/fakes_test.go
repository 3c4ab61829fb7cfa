package registrations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-events/registration-service/internal/models"
)

var errBoom = errors.New("boom")

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) CreateAccount(ctx context.Context, account models.NewAccount) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsers) UpdateAccount(ctx context.Context, userID int64, email string) error {
	return m.Called(ctx, userID, email).Error(0)
}

func (m *mockUsers) DeleteAccount(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	ev, _ := args.Get(0).(*models.Event)
	return ev, args.Error(1)
}

func (m *mockEvents) GetTeamMembers(ctx context.Context, eventID int64) ([]models.TeamMember, error) {
	args := m.Called(ctx, eventID)
	members, _ := args.Get(0).([]models.TeamMember)
	return members, args.Error(1)
}

type mockCompensator struct {
	mock.Mock
}

func (m *mockCompensator) EnqueueAccountDeletion(ctx context.Context, userID int64, reason string) error {
	return m.Called(ctx, userID, reason).Error(0)
}

func (m *mockCompensator) EnqueueRegistrationDeletion(ctx context.Context, registrationID int64) error {
	return m.Called(ctx, registrationID).Error(0)
}

// faultyStore wraps MemoryStore and fails the configured write operations.
type faultyStore struct {
	*MemoryStore

	mu        sync.Mutex
	saveErr   error
	deleteErr error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: NewMemoryStore()}
}

func (f *faultyStore) Save(ctx context.Context, reg *models.Registration) error {
	f.mu.Lock()
	err := f.saveErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Save(ctx, reg)
}

func (f *faultyStore) DeleteByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.DeleteByID(ctx, id)
}

type fixture struct {
	store       *faultyStore
	users       *mockUsers
	events      *mockEvents
	compensator *mockCompensator
	svc         *Service
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		store:       newFaultyStore(),
		users:       &mockUsers{},
		events:      &mockEvents{},
		compensator: &mockCompensator{},
	}
	opts := Options{
		GatewayTimeout: time.Second,
		Retry:          RetryPolicy{MaxAttempts: 2, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Secrets:        NewSeededSecretGenerator(42),
		Compensator:    f.compensator,
		Now:            func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.svc = NewService(f.store, f.users, f.events, opts, zap.NewNop())
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.events.AssertExpectations(t)
		f.compensator.AssertExpectations(t)
	})
	return f
}

// seed stores reg directly, bypassing the engine.
func (f *fixture) seed(t *testing.T, reg models.Registration) *models.Registration {
	t.Helper()
	if reg.Secret == "" {
		reg.Secret = "1234"
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = testNow.Add(-time.Hour)
	}
	require.NoError(t, f.store.MemoryStore.Save(context.Background(), &reg))
	return &reg
}

func (f *fixture) reload(t *testing.T, id int64) *models.Registration {
	t.Helper()
	reg, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return reg
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

// futureEvent is owned by user 100 and has not started at testNow.
func futureEvent(id int64) *models.Event {
	return &models.Event{
		ID:                 id,
		Name:               "GopherCon",
		OwnerID:            100,
		StartDateTime:      testNow.Add(24 * time.Hour),
		EndDateTime:        testNow.Add(26 * time.Hour),
		RegistrationStatus: models.EventRegistrationOpen,
	}
}
