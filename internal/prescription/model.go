package prescription

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	// ErrNotAppointmentDoctor is returned when a doctor tries to prescribe
	// against an appointment assigned to somebody else.
	ErrNotAppointmentDoctor = errors.New("appointment belongs to a different doctor")
)

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
)

// Prescription is issued by a doctor against one of their appointments.
// Like appointments, prescriptions are never deleted.
type Prescription struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	MedicineName  string
	Dosage        string
	Instructions  string
	Status        PrescriptionStatus
	PrescribedAt  time.Time
	CreatedAt     time.Time
}

// MedicalRecord is a diagnosis/treatment entry on a patient's history,
// written by a doctor after a consultation.
type MedicalRecord struct {
	ID         uuid.UUID
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Diagnosis  string
	Treatment  string
	Notes      string
	RecordedAt time.Time
}
