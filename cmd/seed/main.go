package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/scheduling-service/internal/postgres"
	"github.com/medibook/scheduling-service/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var consultationTypes = []scheduling.ConsultationType{
	scheduling.TypeClinic,
	scheduling.TypeVideo,
	scheduling.TypeCall,
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		slotMinutes := []int{15, 20, 30}[gofakeit.Number(0, 2)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, slot_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, slotMinutes)
		if err != nil {
			return err
		}

		// Weekday morning and afternoon windows, a random mix of types.
		for weekday := 1; weekday <= 5; weekday++ {
			ctype := consultationTypes[gofakeit.Number(0, len(consultationTypes)-1)]
			_, err = tx.Exec(ctx, `
				INSERT INTO doctor_availability (doctor_id, weekday, start_minute, end_minute, consultation_type)
				VALUES ($1, $2, $3, $4, $5)
			`, id, weekday, 9*60, 12*60, ctype)
			if err != nil {
				return err
			}
			if gofakeit.Bool() {
				_, err = tx.Exec(ctx, `
					INSERT INTO doctor_availability (doctor_id, weekday, start_minute, end_minute, consultation_type)
					VALUES ($1, $2, $3, $4, $5)
				`, id, weekday, 14*60, 17*60, ctype)
				if err != nil {
					return err
				}
			}
		}

		for _, ctype := range consultationTypes {
			fee := int64(gofakeit.Number(2000, 15000))
			_, err = tx.Exec(ctx, `
				INSERT INTO doctor_fees (doctor_id, consultation_type, fee_cents)
				VALUES ($1, $2, $3)
			`, id, ctype, fee)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, phone)
			if err != nil {
				tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("patients seeded")
	return nil
}
