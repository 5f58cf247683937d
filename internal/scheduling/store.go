package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows appointment queries. A nil time bound is unbounded;
// when both are set the filter matches appointments whose [Start, End)
// overlaps [From, To).
type ListFilter struct {
	Statuses []Status
	From     *time.Time
	To       *time.Time
}

func (f ListFilter) matchesStatus(s Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, want := range f.Statuses {
		if s == want {
			return true
		}
	}
	return false
}

func (f ListFilter) matchesRange(start, end time.Time) bool {
	if f.From != nil && !end.After(*f.From) {
		return false
	}
	if f.To != nil && !start.Before(*f.To) {
		return false
	}
	return true
}

// Store is the persistence contract the scheduler runs against. List results
// are ordered by start time ascending. WithTx runs fn against a transactional
// view: either every write inside fn commits or none do, and fn's reads see
// no writes from concurrent transactions.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error)
	// ListStartingBetween serves the reminder worker: appointments in the
	// given statuses whose start falls in [from, to), across all doctors.
	ListStartingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Directory resolves read-mostly reference data owned by the profile
// collaborator. The scheduler reads doctors for availability and fee
// snapshots; patient lookups serve display-time joins only.
type Directory interface {
	Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Patient(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListDoctors(ctx context.Context, specialty string) ([]Doctor, error)
}

// DoctorLocker guards the per-doctor critical section that makes
// conflict-check-then-write atomic. Implementations must bound the wait and
// return ErrLockNotAcquired on timeout rather than block indefinitely.
type DoctorLocker interface {
	WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error
}

// NotificationSink receives lifecycle events best-effort. Implementations
// must not block the caller; delivery failures are theirs to log and drop.
type NotificationSink interface {
	Notify(ctx context.Context, ev Event)
}

// NopSink drops all events.
type NopSink struct{}

func (NopSink) Notify(context.Context, Event) {}
