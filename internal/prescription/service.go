package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/scheduling-service/internal/scheduling"
)

// Service covers the prescription and medical-history workflows doctors run
// after consultations. Appointment ownership is checked against the
// scheduler's store so a doctor cannot prescribe on someone else's booking.
type Service struct {
	repo  Repository
	store scheduling.Store

	now func() time.Time
}

func NewService(repo Repository, store scheduling.Store) *Service {
	return &Service{
		repo:  repo,
		store: store,
		now:   time.Now,
	}
}

type IssueInput struct {
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	MedicineName  string
	Dosage        string
	Instructions  string
}

// Issue creates a prescription against an appointment. The patient is taken
// from the appointment record, not from the caller.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*Prescription, error) {
	if in.MedicineName == "" {
		return nil, &scheduling.ValidationError{Field: "medicine_name", Reason: "required"}
	}

	appt, err := s.store.Get(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != in.DoctorID {
		return nil, ErrNotAppointmentDoctor
	}

	now := s.now()
	p := &Prescription{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		MedicineName:  in.MedicineName,
		Dosage:        in.Dosage,
		Instructions:  in.Instructions,
		Status:        PrescriptionActive,
		PrescribedAt:  now,
		CreatedAt:     now,
	}
	if err := s.repo.CreatePrescription(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Prescription, error) {
	return s.repo.ListPrescriptionsByDoctor(ctx, doctorID)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return s.repo.ListPrescriptionsByPatient(ctx, patientID)
}

type RecordInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Diagnosis string
	Treatment string
	Notes     string
}

// AddRecord appends a diagnosis/treatment entry to a patient's history.
func (s *Service) AddRecord(ctx context.Context, in RecordInput) (*MedicalRecord, error) {
	if in.Diagnosis == "" {
		return nil, &scheduling.ValidationError{Field: "diagnosis", Reason: "required"}
	}
	if in.Treatment == "" {
		return nil, &scheduling.ValidationError{Field: "treatment", Reason: "required"}
	}

	rec := &MedicalRecord{
		ID:         uuid.New(),
		PatientID:  in.PatientID,
		DoctorID:   in.DoctorID,
		Diagnosis:  in.Diagnosis,
		Treatment:  in.Treatment,
		Notes:      in.Notes,
		RecordedAt: s.now(),
	}
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// History is the read-only medical-history view: the patient's completed
// appointments joined with their prescriptions and records.
type History struct {
	Appointments  []scheduling.Appointment
	Prescriptions []Prescription
	Records       []MedicalRecord
}

func (s *Service) History(ctx context.Context, patientID uuid.UUID) (*History, error) {
	appts, err := s.store.ListByPatient(ctx, patientID, scheduling.ListFilter{
		Statuses: []scheduling.Status{scheduling.StatusCompleted},
	})
	if err != nil {
		return nil, err
	}

	prescriptions, err := s.repo.ListPrescriptionsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListRecordsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return &History{
		Appointments:  appts,
		Prescriptions: prescriptions,
		Records:       records,
	}, nil
}
