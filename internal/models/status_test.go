package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		require.Equal(t, s, got)
	}

	for _, bad := range []string{"", "pending", "ACCEPTED", " APPROVED"} {
		_, err := ParseStatus(bad)
		require.Error(t, err, "input %q", bad)
		require.True(t, errors.Is(err, ErrUnknownStatus))
	}
}

func TestParseStatusOrDefault(t *testing.T) {
	got, err := ParseStatusOrDefault(nil)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got)

	rejected := "REJECTED"
	got, err = ParseStatusOrDefault(&rejected)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got)

	empty := ""
	_, err = ParseStatusOrDefault(&empty)
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestIsTransitionValid_Table(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusApproved}: true,
		{StatusPending, StatusRejected}: true,
		{StatusApproved, StatusWaiting}: true,
		{StatusWaiting, StatusApproved}: true,
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			assert.Equal(t, allowed[[2]Status{from, to}], IsTransitionValid(from, to), "%s -> %s", from, to)
		}
	}
}

// TestIsTransitionValid_Properties checks the structural properties of the
// lifecycle for arbitrary pairs, including unknown statuses.
func TestIsTransitionValid_Properties(t *testing.T) {
	statusGen := rapid.OneOf(
		rapid.SampledFrom(AllStatuses),
		rapid.Map(rapid.StringMatching(`[A-Z]{0,8}`), func(s string) Status { return Status(s) }),
	)
	rapid.Check(t, func(rt *rapid.T) {
		from := statusGen.Draw(rt, "from")
		to := statusGen.Draw(rt, "to")

		valid := IsTransitionValid(from, to)
		if valid && (!from.Valid() || !to.Valid()) {
			rt.Fatalf("transition %s -> %s involves an unknown status", from, to)
		}
		if from == to && valid {
			rt.Fatalf("self transition %s allowed", from)
		}
		if from == StatusRejected && valid {
			rt.Fatalf("REJECTED is terminal but %s -> %s allowed", from, to)
		}
		if to == StatusPending && valid {
			rt.Fatalf("nothing may move back to PENDING, got %s -> %s", from, to)
		}
	})
}

func TestStatus_IsActive(t *testing.T) {
	require.True(t, StatusPending.IsActive())
	require.True(t, StatusApproved.IsActive())
	require.True(t, StatusWaiting.IsActive())
	require.False(t, StatusRejected.IsActive())
	require.False(t, Status("").IsActive())
}

func TestEvent_InProgress(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := &Event{StartDateTime: start, EndDateTime: start.Add(2 * time.Hour)}

	require.False(t, ev.InProgress(start.Add(-time.Nanosecond)))
	require.True(t, ev.InProgress(start))
	require.True(t, ev.InProgress(start.Add(time.Hour)))
	require.False(t, ev.InProgress(start.Add(2*time.Hour)))
}

func TestRegistration_Views(t *testing.T) {
	uid := int64(7)
	reg := &Registration{
		ID:      3,
		UserID:  &uid,
		EventID: 11,
		Name:    "Ada",
		Email:   "ada@example.com",
		Phone:   "+100",
		Secret:  "0042",
		Status:  StatusWaiting,
	}
	require.True(t, reg.HasUser())
	require.Equal(t, PublicRegistration{Name: "Ada", Email: "ada@example.com", Phone: "+100", EventID: 11}, reg.ToPublic())

	view := reg.ToStatusView()
	require.Equal(t, StatusWaiting, view.RegistrationStatus)
	require.Nil(t, view.Reason)

	reg.UserID = nil
	require.False(t, reg.HasUser())
}
