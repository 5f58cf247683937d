package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memAppt(doctorID uuid.UUID, start time.Time, status Status) *Appointment {
	return &Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: uuid.New(),
		Type:      TypeClinic,
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Status:    status,
		FeeCents:  5000,
	}
}

func TestMemoryStoreTxCommitsOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	doctorID := uuid.New()

	a := memAppt(doctorID, monday.Add(9*time.Hour), StatusPending)
	err := store.WithTx(ctx, func(txCtx context.Context, tx Store) error {
		if err := tx.Create(txCtx, a); err != nil {
			return err
		}
		// The transaction sees its own staged write.
		got, err := tx.Get(txCtx, a.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, a.ID, got.ID)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestMemoryStoreTxRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	doctorID := uuid.New()

	existing := memAppt(doctorID, monday.Add(9*time.Hour), StatusPending)
	require.NoError(t, store.Create(ctx, existing))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(txCtx context.Context, tx Store) error {
		fresh := memAppt(doctorID, monday.Add(10*time.Hour), StatusPending)
		if err := tx.Create(txCtx, fresh); err != nil {
			return err
		}
		existing.Status = StatusConfirmed
		if err := tx.Update(txCtx, existing); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither the create nor the update survives.
	appts, err := store.ListByDoctor(ctx, doctorID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, StatusPending, appts[0].Status)
}

func TestMemoryStoreTxAbortsOnExpiredContext(t *testing.T) {
	store := NewMemoryStore()
	doctorID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	a := memAppt(doctorID, monday.Add(9*time.Hour), StatusPending)

	err := store.WithTx(ctx, func(txCtx context.Context, tx Store) error {
		if err := tx.Create(txCtx, a); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = store.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMemoryStoreUpdateUnknownFails(t *testing.T) {
	store := NewMemoryStore()
	err := store.Update(context.Background(), memAppt(uuid.New(), monday, StatusPending))
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	doctorID := uuid.New()

	nine := memAppt(doctorID, monday.Add(9*time.Hour), StatusConfirmed)
	ten := memAppt(doctorID, monday.Add(10*time.Hour), StatusPending)
	cancelled := memAppt(doctorID, monday.Add(11*time.Hour), StatusCancelled)
	for _, a := range []*Appointment{ten, nine, cancelled} {
		require.NoError(t, store.Create(ctx, a))
	}

	all, err := store.ListByDoctor(ctx, doctorID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, nine.ID, all[0].ID, "sorted by start time")

	active, err := store.ListByDoctor(ctx, doctorID, ListFilter{Statuses: activeStatuses})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// Range filter uses interval overlap, not containment.
	from := monday.Add(9*time.Hour + 15*time.Minute)
	to := monday.Add(10*time.Hour + 15*time.Minute)
	inRange, err := store.ListByDoctor(ctx, doctorID, ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.Equal(t, nine.ID, inRange[0].ID)
	assert.Equal(t, ten.ID, inRange[1].ID)

	upcoming, err := store.ListStartingBetween(ctx, monday.Add(9*time.Hour+30*time.Minute), monday.Add(12*time.Hour), []Status{StatusPending})
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, ten.ID, upcoming[0].ID)
}
