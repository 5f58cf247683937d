package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/scheduling-service/internal/config"
	"github.com/medibook/scheduling-service/internal/postgres"
)

// The simulator hammers the booking API with concurrent workers, a share of
// which all fight over the same slot, then checks the committed data for
// double bookings. It is the operational proof of the no-double-booking
// property.

type SimConfig struct {
	APIBaseURL     string
	Duration       time.Duration
	Workers        int
	ContendedRatio float64 // share of bookings aimed at one hot slot
	PatientLimit   int
	PostgresDSN    string
	Timezone       *time.Location
}

type SlotRef struct {
	DoctorID uuid.UUID
	Type     string
	Date     string
	Time     string
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []SlotRef
	HotSlot  SlotRef
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Busy      int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusServiceUnavailable:
		atomic.AddInt64(&om.Busy, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(p int) int {
		i := len(latencies) * p / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return i
	}
	return avg, latencies[idx(50)], latencies[idx(95)]
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	booking OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	log.Printf("config: duration=%s workers=%d contended=%.2f",
		cfg.Duration, cfg.Workers, cfg.ContendedRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d candidate slots, hot slot %s %s doctor=%s",
		len(dataPool.Patients), len(dataPool.Slots), dataPool.HotSlot.Date, dataPool.HotSlot.Time, dataPool.HotSlot.DoctorID)

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()

	if err := verifyNoDoubleBooking(context.Background(), pgPool); err != nil {
		log.Fatalf("INTEGRITY FAILURE: %v", err)
	}
	log.Println("integrity check passed: no overlapping active appointments")
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:     getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:       getDuration("SIM_DURATION", 30*time.Second),
		Workers:        getInt("SIM_WORKERS", 10),
		ContendedRatio: getFloat("SIM_CONTENDED_RATIO", 0.3),
		PatientLimit:   getInt("SIM_PATIENT_LIMIT", 2000),
		PostgresDSN:    baseCfg.PostgresDSN,
		Timezone:       baseCfg.Timezone,
	}
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	// Expand each doctor's next-week windows into concrete candidate slots.
	drows, err := pool.Query(ctx, `
		SELECT d.id, d.slot_minutes, a.weekday, a.start_minute, a.end_minute, a.consultation_type
		FROM doctors d
		JOIN doctor_availability a ON a.doctor_id = d.id
		LIMIT 500
	`)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	defer drows.Close()

	now := time.Now().In(cfg.Timezone)
	for drows.Next() {
		var (
			doctorID    uuid.UUID
			slotMinutes int
			weekday     int
			startMin    int
			endMin      int
			ctype       string
		)
		if err := drows.Scan(&doctorID, &slotMinutes, &weekday, &startMin, &endMin, &ctype); err != nil {
			return nil, err
		}
		if slotMinutes <= 0 {
			slotMinutes = 30
		}

		day := now.AddDate(0, 0, 1)
		for day.Weekday() != time.Weekday(weekday) {
			day = day.AddDate(0, 0, 1)
		}
		for m := startMin; m+slotMinutes <= endMin; m += slotMinutes {
			dataPool.Slots = append(dataPool.Slots, SlotRef{
				DoctorID: doctorID,
				Type:     ctype,
				Date:     day.Format("2006-01-02"),
				Time:     fmt.Sprintf("%02d:%02d", m/60, m%60),
			})
		}
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seeder first")
	}
	if len(dataPool.Slots) == 0 {
		return nil, fmt.Errorf("no slots derived, run the seeder first")
	}

	dataPool.HotSlot = dataPool.Slots[0]
	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		slot := s.pool.HotSlot
		if rng.Float64() >= s.config.ContendedRatio {
			slot = s.pool.Slots[rng.Intn(len(s.pool.Slots))]
		}
		patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

		s.book(ctx, slot, patient)
	}
}

func (s *Simulator) book(ctx context.Context, slot SlotRef, patientID uuid.UUID) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":         slot.DoctorID.String(),
		"patient_id":        patientID.String(),
		"consultation_type": slot.Type,
		"date":              slot.Date,
		"time":              slot.Time,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.booking.Record(latency, 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	s.booking.Record(latency, resp.StatusCode)
}

func (s *Simulator) PrintReport() {
	avg, p50, p95 := s.booking.Stats()
	log.Printf("bookings: total=%d success=%d conflict=%d busy=%d error=%d",
		atomic.LoadInt64(&s.booking.Total),
		atomic.LoadInt64(&s.booking.Success),
		atomic.LoadInt64(&s.booking.Conflict),
		atomic.LoadInt64(&s.booking.Busy),
		atomic.LoadInt64(&s.booking.Error),
	)
	log.Printf("latency: avg=%s p50=%s p95=%s", avg, p50, p95)
}

// verifyNoDoubleBooking asserts the core invariant directly against the
// database: no two pending/confirmed appointments for one doctor overlap.
func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) error {
	row := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.doctor_id = b.doctor_id
		 AND a.id < b.id
		 AND a.start_time < b.end_time
		 AND b.start_time < a.end_time
		WHERE a.status IN ('pending', 'confirmed')
		  AND b.status IN ('pending', 'confirmed')
	`)

	var overlapping int
	if err := row.Scan(&overlapping); err != nil {
		return fmt.Errorf("integrity query: %w", err)
	}
	if overlapping > 0 {
		return fmt.Errorf("found %d overlapping active appointment pairs", overlapping)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
