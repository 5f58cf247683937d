package prescription

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreatePrescription(ctx context.Context, p *Prescription) error
	GetPrescriptionByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListPrescriptionsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Prescription, error)
	ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error)

	CreateRecord(ctx context.Context, r *MedicalRecord) error
	ListRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]MedicalRecord, error)
}
