package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the same
// query methods serve inside and outside a transaction.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	pool *pgxpool.Pool
	q    pgQuerier
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, q: pool}
}

const appointmentColumns = `id, doctor_id, patient_id, consultation_type, start_time, end_time, status, symptoms, cancel_reason, fee_cents, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Type,
		&a.Start,
		&a.End,
		&a.Status,
		&a.Symptoms,
		&a.CancelReason,
		&a.FeeCents,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) Create(ctx context.Context, a *Appointment) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.DoctorID, a.PatientID, a.Type, a.Start, a.End, a.Status, a.Symptoms, a.CancelReason, a.FeeCents, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *PgStore) Update(ctx context.Context, a *Appointment) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    status = $4,
		    symptoms = $5,
		    cancel_reason = $6,
		    updated_at = $7
		WHERE id = $1
	`, a.ID, a.Start, a.End, a.Status, a.Symptoms, a.CancelReason, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (s *PgStore) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.list(ctx, "doctor_id", doctorID, f)
}

func (s *PgStore) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.list(ctx, "patient_id", patientID, f)
}

func (s *PgStore) list(ctx context.Context, column string, id uuid.UUID, f ListFilter) ([]Appointment, error) {
	conds := []string{column + " = $1"}
	args := []any{id}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("end_time > $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("start_time < $%d", len(args)))
	}

	rows, err := s.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY start_time ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error) {
	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}

	rows, err := s.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE start_time >= $1
		  AND start_time < $2
		  AND status = ANY($3)
		ORDER BY start_time ASC
	`, from, to, strs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// WithTx runs fn in a database transaction. Read committed is enough here:
// write paths additionally hold the per-doctor lock, which serializes
// conflict-check-then-write for a given doctor.
func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if _, ok := s.q.(pgx.Tx); ok {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txStore := &PgStore{pool: s.pool, q: tx}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
