package registrations

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-events/registration-service/internal/models"
)

func TestCountByStatus_OmitsZeroCounts(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.seed(t, models.Registration{EventID: 5, Status: models.StatusPending})
	}
	f.seed(t, models.Registration{EventID: 6, Status: models.StatusApproved})

	counts, err := f.svc.CountByStatus(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"PENDING": 3}, counts)

	counts, err = f.svc.CountByStatus(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, counts)
}

func TestListByStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seed(t, models.Registration{EventID: 5, Name: "first", Status: models.StatusWaiting, CreatedAt: testNow.Add(-3 * time.Hour)})
	f.seed(t, models.Registration{EventID: 5, Name: "pending", Status: models.StatusPending})
	f.seed(t, models.Registration{EventID: 5, Name: "second", Status: models.StatusApproved, CreatedAt: testNow.Add(-2 * time.Hour)})
	f.seed(t, models.Registration{EventID: 6, Name: "other", Status: models.StatusWaiting})

	views, err := f.svc.ListByStatuses(ctx, 5, []string{"WAITING", "APPROVED", "WAITING"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, first.Name, views[0].Name)
	require.Equal(t, models.StatusWaiting, views[0].RegistrationStatus)
	require.Equal(t, "second", views[1].Name)

	views, err = f.svc.ListByStatuses(ctx, 5, nil)
	require.NoError(t, err)
	require.NotNil(t, views)
	require.Empty(t, views)

	_, err = f.svc.ListByStatuses(ctx, 5, []string{"WAITING", "maybe"})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "Unknown status: maybe", err.Error())
}

func TestCountByStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, models.Registration{EventID: 5, Status: models.StatusWaiting})
	f.seed(t, models.Registration{EventID: 5, Status: models.StatusApproved})
	f.seed(t, models.Registration{EventID: 5, Status: models.StatusRejected})

	n, err := f.svc.CountByStatuses(ctx, 5, []string{"WAITING", "APPROVED"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = f.svc.CountByStatuses(ctx, 5, []string{})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.svc.CountByStatuses(ctx, 5, []string{""})
	require.ErrorIs(t, err, ErrValidation)
}

func TestListByEvent_Pages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.seed(t, models.Registration{EventID: 5, Name: string(rune('a' + i)), CreatedAt: testNow.Add(time.Duration(i) * time.Minute), Status: models.StatusPending})
	}

	page, err := f.svc.ListByEvent(ctx, 5, Page{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "c", page[0].Name)
	require.Equal(t, "d", page[1].Name)

	page, err = f.svc.ListByEvent(ctx, 5, Page{Page: 3, Size: 2})
	require.NoError(t, err)
	require.Empty(t, page)

	page, err = f.svc.ListByEvent(ctx, 5, Page{})
	require.NoError(t, err)
	require.Len(t, page, 5)
}

func TestListByEvent_PageBeyondAnyOffset(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.Registration{EventID: 5, Status: models.StatusPending})

	page, err := f.svc.ListByEvent(context.Background(), 5, Page{Page: math.MaxInt/MaxPageSize + 1, Size: MaxPageSize})
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), 12)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "Registration with id=12 not found.", err.Error())
}

func TestStatusOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, models.Registration{UserID: int64Ptr(9), EventID: 5, Status: models.StatusApproved})

	st, err := f.svc.StatusOf(ctx, 5, 9)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, st)

	_, err = f.svc.StatusOf(ctx, 6, 9)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "Registration from user id=9 to event id=6 not found.", err.Error())
}

func TestPage_Normalize(t *testing.T) {
	require.Equal(t, Page{Page: 0, Size: DefaultPageSize}, Page{Page: -1}.Normalize())
	require.Equal(t, Page{Page: 2, Size: MaxPageSize}, Page{Page: 2, Size: 5000}.Normalize())
	require.Equal(t, 30, Page{Page: 3, Size: 10}.Offset())

	huge := Page{Page: math.MaxInt, Size: 7}.Normalize()
	require.Equal(t, math.MaxInt/7, huge.Page)
	require.GreaterOrEqual(t, huge.Offset(), 0)
}
