package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionIllegalNamesStates(t *testing.T) {
	a := &Appointment{Status: StatusCancelled}

	err := Transition(a, StatusConfirmed, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	var ite *IllegalTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, StatusCancelled, ite.From)
	assert.Equal(t, StatusConfirmed, ite.To)
}

func TestTransitionCompleteRequiresScheduledTimePassed(t *testing.T) {
	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	a := &Appointment{Status: StatusConfirmed, Start: now.Add(time.Hour)}
	err := Transition(a, StatusCompleted, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, StatusConfirmed, a.Status, "failed transition must not mutate")

	a.Start = now.Add(-time.Hour)
	require.NoError(t, Transition(a, StatusCompleted, now))
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, now, a.UpdatedAt)
}

func TestTransitionTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []Status{StatusCancelled, StatusCompleted} {
		for _, to := range []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
			a := &Appointment{Status: terminal}
			err := Transition(a, to, time.Now())
			assert.Error(t, err, "%s -> %s must fail", terminal, to)
		}
	}
}

func TestCanReschedule(t *testing.T) {
	assert.True(t, CanReschedule(StatusPending))
	assert.True(t, CanReschedule(StatusConfirmed))
	assert.False(t, CanReschedule(StatusCancelled))
	assert.False(t, CanReschedule(StatusCompleted))
}
