package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConsultationType string

const (
	TypeClinic ConsultationType = "clinic"
	TypeVideo  ConsultationType = "video"
	TypeCall   ConsultationType = "call"
)

func (t ConsultationType) Valid() bool {
	switch t {
	case TypeClinic, TypeVideo, TypeCall:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// activeStatuses are the statuses that occupy a doctor's calendar.
var activeStatuses = []Status{StatusPending, StatusConfirmed}

// TimeOfDay is a clock time expressed as minutes since midnight, independent
// of any date or timezone.
type TimeOfDay int

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// AvailabilityWindow is one recurring weekly span during which a doctor
// accepts a given consultation type.
type AvailabilityWindow struct {
	Weekday time.Weekday
	Start   TimeOfDay
	End     TimeOfDay
	Type    ConsultationType
}

// Doctor is read-mostly reference data owned by the profile collaborator.
// The scheduler never mutates it.
type Doctor struct {
	ID          uuid.UUID
	Name        string
	Specialty   string
	SlotMinutes int
	Windows     []AvailabilityWindow
	Fees        map[ConsultationType]int64 // cents
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Offers reports whether the doctor has any availability window for the type.
func (d *Doctor) Offers(t ConsultationType) bool {
	if _, ok := d.Fees[t]; ok {
		return true
	}
	for _, w := range d.Windows {
		if w.Type == t {
			return true
		}
	}
	return false
}

// Fee returns the doctor's current fee for the consultation type.
func (d *Doctor) Fee(t ConsultationType) (int64, bool) {
	fee, ok := d.Fees[t]
	return fee, ok
}

// SlotDuration is the doctor's booking granularity.
func (d *Doctor) SlotDuration() time.Duration {
	if d.SlotMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(d.SlotMinutes) * time.Minute
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the single source of truth for a booking. It is created by
// Book and mutated only through the transition operations; records are never
// deleted, cancellation is a status change.
type Appointment struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	PatientID    uuid.UUID
	Type         ConsultationType
	Start        time.Time
	End          time.Time
	Status       Status
	Symptoms     string
	CancelReason string
	FeeCents     int64 // snapshot taken at booking, immutable afterwards
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Slot is a derived view, computed on demand and never persisted.
type Slot struct {
	Start     time.Time
	End       time.Time
	Type      ConsultationType
	Available bool
}

type Event struct {
	Type          string
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Start         time.Time
	OccurredAt    time.Time
}

const (
	EventBooked      = "appointment.booked"
	EventConfirmed   = "appointment.confirmed"
	EventCancelled   = "appointment.cancelled"
	EventCompleted   = "appointment.completed"
	EventRescheduled = "appointment.rescheduled"
	EventReminder    = "appointment.reminder"
)
