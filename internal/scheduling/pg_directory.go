package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgDirectory reads doctor and patient profiles. Profile mutation belongs to
// the profile-management service; the scheduler only ever reads here.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, specialty, slot_minutes, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)

	var doc Doctor
	err := row.Scan(&doc.ID, &doc.Name, &doc.Specialty, &doc.SlotMinutes, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if err := d.loadWindows(ctx, &doc); err != nil {
		return nil, err
	}
	if err := d.loadFees(ctx, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *PgDirectory) loadWindows(ctx context.Context, doc *Doctor) error {
	rows, err := d.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute, consultation_type
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY weekday, start_minute
	`, doc.ID)
	if err != nil {
		return fmt.Errorf("load availability windows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w AvailabilityWindow
		var weekday int
		if err := rows.Scan(&weekday, &w.Start, &w.End, &w.Type); err != nil {
			return err
		}
		w.Weekday = time.Weekday(weekday)
		doc.Windows = append(doc.Windows, w)
	}
	return rows.Err()
}

func (d *PgDirectory) loadFees(ctx context.Context, doc *Doctor) error {
	rows, err := d.pool.Query(ctx, `
		SELECT consultation_type, fee_cents
		FROM doctor_fees
		WHERE doctor_id = $1
	`, doc.ID)
	if err != nil {
		return fmt.Errorf("load fees: %w", err)
	}
	defer rows.Close()

	doc.Fees = make(map[ConsultationType]int64)
	for rows.Next() {
		var ct ConsultationType
		var fee int64
		if err := rows.Scan(&ct, &fee); err != nil {
			return err
		}
		doc.Fees[ct] = fee
	}
	return rows.Err()
}

func (d *PgDirectory) Patient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)

	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (d *PgDirectory) ListDoctors(ctx context.Context, specialty string) ([]Doctor, error) {
	query := `
		SELECT id, name, specialty, slot_minutes, created_at, updated_at
		FROM doctors
	`
	var args []any
	if specialty != "" {
		query += ` WHERE specialty = $1`
		args = append(args, specialty)
	}
	query += ` ORDER BY name`

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		var doc Doctor
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Specialty, &doc.SlotMinutes, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}
