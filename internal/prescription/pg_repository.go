package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.DoctorID,
		&p.PatientID,
		&p.MedicineName,
		&p.Dosage,
		&p.Instructions,
		&p.Status,
		&p.PrescribedAt,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	return &p, nil
}

const prescriptionColumns = `id, appointment_id, doctor_id, patient_id, medicine_name, dosage, instructions, status, prescribed_at, created_at`

func (r *PgRepository) CreatePrescription(ctx context.Context, p *Prescription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prescriptions (`+prescriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.AppointmentID, p.DoctorID, p.PatientID, p.MedicineName, p.Dosage, p.Instructions, p.Status, p.PrescribedAt, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *PgRepository) GetPrescriptionByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE id = $1
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) ListPrescriptionsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Prescription, error) {
	return r.listPrescriptions(ctx, "doctor_id", doctorID)
}

func (r *PgRepository) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return r.listPrescriptions(ctx, "patient_id", patientID)
}

func (r *PgRepository) listPrescriptions(ctx context.Context, column string, id uuid.UUID) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE `+column+` = $1
		ORDER BY prescribed_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateRecord(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medical_records (id, patient_id, doctor_id, diagnosis, treatment, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.PatientID, rec.DoctorID, rec.Diagnosis, rec.Treatment, rec.Notes, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (r *PgRepository) ListRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, diagnosis, treatment, notes, recorded_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MedicalRecord
	for rows.Next() {
		var rec MedicalRecord
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.Diagnosis, &rec.Treatment, &rec.Notes, &rec.RecordedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
