package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the embedded storage engine: a mutex-guarded map suitable
// for single-process deployments and tests. Transactions stage writes and
// apply them on commit, so a failed or expired transaction leaves nothing
// behind.
type MemoryStore struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{appts: make(map[uuid.UUID]Appointment)}
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return getFrom(m.appts, id)
}

func (m *MemoryStore) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[a.ID] = *a
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	m.appts[a.ID] = *a
	return nil
}

func (m *MemoryStore) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return listFrom(m.appts, f, func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (m *MemoryStore) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return listFrom(m.appts, f, func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *MemoryStore) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return listStartingFrom(m.appts, from, to, statuses), nil
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{base: m.appts, staged: make(map[uuid.UUID]Appointment)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, a := range tx.staged {
		m.appts[id] = a
	}
	return nil
}

// memoryTx layers staged writes over the committed map. The parent holds the
// store mutex for the whole transaction, so access here is unsynchronized.
type memoryTx struct {
	base   map[uuid.UUID]Appointment
	staged map[uuid.UUID]Appointment
}

func (t *memoryTx) view() map[uuid.UUID]Appointment {
	merged := make(map[uuid.UUID]Appointment, len(t.base)+len(t.staged))
	for id, a := range t.base {
		merged[id] = a
	}
	for id, a := range t.staged {
		merged[id] = a
	}
	return merged
}

func (t *memoryTx) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	if a, ok := t.staged[id]; ok {
		cp := a
		return &cp, nil
	}
	return getFrom(t.base, id)
}

func (t *memoryTx) Create(ctx context.Context, a *Appointment) error {
	t.staged[a.ID] = *a
	return nil
}

func (t *memoryTx) Update(ctx context.Context, a *Appointment) error {
	if _, ok := t.staged[a.ID]; !ok {
		if _, ok := t.base[a.ID]; !ok {
			return ErrAppointmentNotFound
		}
	}
	t.staged[a.ID] = *a
	return nil
}

func (t *memoryTx) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return listFrom(t.view(), f, func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (t *memoryTx) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return listFrom(t.view(), f, func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (t *memoryTx) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error) {
	return listStartingFrom(t.view(), from, to, statuses), nil
}

func (t *memoryTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	// Already inside a transaction.
	return fn(ctx, t)
}

func getFrom(appts map[uuid.UUID]Appointment, id uuid.UUID) (*Appointment, error) {
	a, ok := appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := a
	return &cp, nil
}

func listStartingFrom(appts map[uuid.UUID]Appointment, from, to time.Time, statuses []Status) []Appointment {
	f := ListFilter{Statuses: statuses}
	var out []Appointment
	for _, a := range appts {
		if !f.matchesStatus(a.Status) {
			continue
		}
		if a.Start.Before(from) || !a.Start.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func listFrom(appts map[uuid.UUID]Appointment, f ListFilter, match func(*Appointment) bool) []Appointment {
	var out []Appointment
	for _, a := range appts {
		if !match(&a) {
			continue
		}
		if !f.matchesStatus(a.Status) || !f.matchesRange(a.Start, a.End) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
