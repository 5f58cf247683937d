package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/scheduling-service/internal/config"
)

const notifyTimeout = 3 * time.Second

// Service owns the appointment lifecycle. Every write operation runs inside
// the per-doctor critical section wrapping a store transaction, so that
// conflict detection and the dependent write are atomic with respect to
// concurrent callers.
type Service struct {
	store     Store
	directory Directory
	locker    DoctorLocker
	sink      NotificationSink
	cfg       config.Config

	now func() time.Time
}

func NewService(store Store, directory Directory, locker DoctorLocker, sink NotificationSink, cfg config.Config) *Service {
	if sink == nil {
		sink = NopSink{}
	}
	return &Service{
		store:     store,
		directory: directory,
		locker:    locker,
		sink:      sink,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) horizon() time.Duration {
	days := s.cfg.MaxHorizonDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

// doctor loads a doctor, filling in the configured default granularity when
// the profile does not carry one.
func (s *Service) doctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.directory.Doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.SlotMinutes <= 0 {
		d.SlotMinutes = s.cfg.SlotMinutes
	}
	return d, nil
}

// Book reserves a slot for a patient. The slot must lie inside the doctor's
// recurring availability and be free of conflicts; the doctor's current fee
// for the consultation type is snapshotted onto the record.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, ctype ConsultationType, start time.Time, symptoms string) (*Appointment, error) {
	if !ctype.Valid() {
		return nil, &ValidationError{Field: "consultation_type", Reason: fmt.Sprintf("unknown type %q", ctype)}
	}
	if patientID == uuid.Nil {
		return nil, &ValidationError{Field: "patient_id", Reason: "required"}
	}

	doctor, err := s.doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Offers(ctype) {
		return nil, ErrUnsupportedConsultationType
	}
	fee, ok := doctor.Fee(ctype)
	if !ok {
		return nil, ErrUnsupportedConsultationType
	}

	now := s.now()
	start = start.In(s.cfg.Timezone)
	end := start.Add(doctor.SlotDuration())

	if start.After(now.Add(s.horizon())) {
		return nil, &ValidationError{Field: "start", Reason: "beyond the booking horizon"}
	}
	if !withinAvailability(doctor, ctype, start, end, s.cfg.Timezone) {
		return nil, ErrSlotUnavailable
	}

	var created *Appointment

	err = s.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		return s.store.WithTx(lockCtx, func(txCtx context.Context, tx Store) error {
			busy, err := tx.ListByDoctor(txCtx, doctorID, ListFilter{
				Statuses: activeStatuses,
				From:     &start,
				To:       &end,
			})
			if err != nil {
				return fmt.Errorf("load busy appointments: %w", err)
			}
			if hasConflict(busy, start, end, uuid.Nil) {
				return ErrSlotUnavailable
			}

			created = &Appointment{
				ID:        uuid.New(),
				DoctorID:  doctorID,
				PatientID: patientID,
				Type:      ctype,
				Start:     start,
				End:       end,
				Status:    StatusPending,
				Symptoms:  symptoms,
				FeeCents:  fee,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(txCtx, created)
		})
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	s.publish(EventBooked, created)
	return created, nil
}

// Reschedule moves an existing appointment to a new slot, preserving its
// identifier and fee snapshot and resetting its status to pending.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newStart = newStart.In(s.cfg.Timezone)
	newEnd := newStart.Add(doctor.SlotDuration())

	if newStart.After(now.Add(s.horizon())) {
		return nil, &ValidationError{Field: "start", Reason: "beyond the booking horizon"}
	}
	if !withinAvailability(doctor, appt.Type, newStart, newEnd, s.cfg.Timezone) {
		return nil, ErrSlotUnavailable
	}

	var updated *Appointment

	err = s.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		return s.store.WithTx(lockCtx, func(txCtx context.Context, tx Store) error {
			cur, err := tx.Get(txCtx, id)
			if err != nil {
				return err
			}
			if !CanReschedule(cur.Status) {
				return &IllegalTransitionError{From: cur.Status, To: StatusPending}
			}

			busy, err := tx.ListByDoctor(txCtx, cur.DoctorID, ListFilter{
				Statuses: activeStatuses,
				From:     &newStart,
				To:       &newEnd,
			})
			if err != nil {
				return fmt.Errorf("load busy appointments: %w", err)
			}
			if hasConflict(busy, newStart, newEnd, cur.ID) {
				return ErrSlotUnavailable
			}

			cur.Start = newStart
			cur.End = newEnd
			cur.Status = StatusPending
			cur.UpdatedAt = now
			if err := tx.Update(txCtx, cur); err != nil {
				return err
			}
			updated = cur
			return nil
		})
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	s.publish(EventRescheduled, updated)
	return updated, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.transition(ctx, id, StatusConfirmed, nil)
	if err != nil {
		return nil, err
	}
	s.publish(EventConfirmed, appt)
	return appt, nil
}

// Cancel transitions a non-terminal appointment to cancelled. The record is
// kept for medical-record auditing.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.transition(ctx, id, StatusCancelled, func(a *Appointment) {
		a.CancelReason = reason
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventCancelled, appt)
	return appt, nil
}

// Complete marks a confirmed appointment as completed. The state machine
// rejects completion before the scheduled time.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.transition(ctx, id, StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	s.publish(EventCompleted, appt)
	return appt, nil
}

// transition applies a state-machine edge under the doctor lock, re-reading
// the record inside the transaction so a concurrent change cannot be lost.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, mutate func(*Appointment)) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		return s.store.WithTx(lockCtx, func(txCtx context.Context, tx Store) error {
			cur, err := tx.Get(txCtx, id)
			if err != nil {
				return err
			}
			if err := Transition(cur, to, s.now()); err != nil {
				return err
			}
			if mutate != nil {
				mutate(cur)
			}
			if err := tx.Update(txCtx, cur); err != nil {
				return err
			}
			updated = cur
			return nil
		})
	})
	if err != nil {
		return nil, mapLockErr(err)
	}
	return updated, nil
}

// Get returns a single appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.Get(ctx, id)
}

// ListForDoctor returns a doctor's appointments ordered by start time.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.store.ListByDoctor(ctx, doctorID, f)
}

// ListForPatient returns a patient's appointments ordered by start time.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.store.ListByPatient(ctx, patientID, f)
}

// AvailableSlots returns a lazy iterator over the doctor's bookable slots in
// [from, to). The range must be non-empty and within the configured horizon.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time, ctype ConsultationType) (*SlotIterator, error) {
	if !ctype.Valid() {
		return nil, &ValidationError{Field: "consultation_type", Reason: fmt.Sprintf("unknown type %q", ctype)}
	}
	if !from.Before(to) {
		return nil, &ValidationError{Field: "range", Reason: "date range is empty"}
	}
	if to.Sub(from) > s.horizon() {
		return nil, &ValidationError{Field: "range", Reason: "date range exceeds the horizon"}
	}

	doctor, err := s.doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Offers(ctype) {
		return nil, ErrUnsupportedConsultationType
	}

	busy, err := s.store.ListByDoctor(ctx, doctorID, ListFilter{
		Statuses: activeStatuses,
		From:     &from,
		To:       &to,
	})
	if err != nil {
		return nil, fmt.Errorf("load busy appointments: %w", err)
	}

	return newSlotIterator(doctor, ctype, busy, from, to, s.cfg.Timezone), nil
}

// RemindUpcoming publishes reminder events for confirmed appointments
// starting within the window. sent carries IDs already reminded so repeated
// worker runs stay quiet; reminders are best-effort and the set may reset on
// restart.
func (s *Service) RemindUpcoming(ctx context.Context, window time.Duration, sent map[uuid.UUID]bool) (int, error) {
	now := s.now()
	upcoming, err := s.store.ListStartingBetween(ctx, now, now.Add(window), []Status{StatusConfirmed})
	if err != nil {
		return 0, fmt.Errorf("find upcoming appointments: %w", err)
	}

	count := 0
	for i := range upcoming {
		a := &upcoming[i]
		if sent[a.ID] {
			continue
		}
		s.publish(EventReminder, a)
		sent[a.ID] = true
		count++
	}
	return count, nil
}

// publish hands the event to the sink off the caller's goroutine so a slow
// or dead sink can never block a committed transition.
func (s *Service) publish(eventType string, a *Appointment) {
	if a == nil {
		return
	}
	ev := Event{
		Type:          eventType,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Start:         a.Start,
		OccurredAt:    s.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		s.sink.Notify(ctx, ev)
	}()
}

func mapLockErr(err error) error {
	if errors.Is(err, ErrLockNotAcquired) {
		return ErrBusy
	}
	return err
}
