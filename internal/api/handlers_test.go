package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/scheduling-service/internal/config"
	"github.com/medibook/scheduling-service/internal/prescription"
	"github.com/medibook/scheduling-service/internal/scheduling"
)

type testDirectory struct {
	doctors  map[uuid.UUID]*scheduling.Doctor
	patients map[uuid.UUID]*scheduling.Patient
}

func (d *testDirectory) Doctor(ctx context.Context, id uuid.UUID) (*scheduling.Doctor, error) {
	if doc, ok := d.doctors[id]; ok {
		return doc, nil
	}
	return nil, scheduling.ErrDoctorNotFound
}

func (d *testDirectory) Patient(ctx context.Context, id uuid.UUID) (*scheduling.Patient, error) {
	if p, ok := d.patients[id]; ok {
		return p, nil
	}
	return nil, scheduling.ErrPatientNotFound
}

func (d *testDirectory) ListDoctors(ctx context.Context, specialty string) ([]scheduling.Doctor, error) {
	var out []scheduling.Doctor
	for _, doc := range d.doctors {
		if specialty == "" || doc.Specialty == specialty {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type memPrescriptionRepo struct {
	mu            sync.Mutex
	prescriptions []prescription.Prescription
	records       []prescription.MedicalRecord
}

func (r *memPrescriptionRepo) CreatePrescription(ctx context.Context, p *prescription.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prescriptions = append(r.prescriptions, *p)
	return nil
}

func (r *memPrescriptionRepo) GetPrescriptionByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.prescriptions {
		if r.prescriptions[i].ID == id {
			p := r.prescriptions[i]
			return &p, nil
		}
	}
	return nil, prescription.ErrPrescriptionNotFound
}

func (r *memPrescriptionRepo) ListPrescriptionsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []prescription.Prescription
	for _, p := range r.prescriptions {
		if p.DoctorID == doctorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPrescriptionRepo) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []prescription.Prescription
	for _, p := range r.prescriptions {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPrescriptionRepo) CreateRecord(ctx context.Context, rec *prescription.MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *memPrescriptionRepo) ListRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]prescription.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []prescription.MedicalRecord
	for _, rec := range r.records {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type testEnv struct {
	handler http.Handler
	doctor  *scheduling.Doctor
	patient *scheduling.Patient
}

// newTestEnv wires the router against in-memory storage. The test doctor is
// available every day so bookings can target tomorrow regardless of when the
// suite runs.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	doctor := &scheduling.Doctor{
		ID:          uuid.New(),
		Name:        "Dr. Ayesha Khan",
		Specialty:   "Dermatology",
		SlotMinutes: 30,
		Fees: map[scheduling.ConsultationType]int64{
			scheduling.TypeClinic: 5000,
			scheduling.TypeVideo:  7500,
		},
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		doctor.Windows = append(doctor.Windows,
			scheduling.AvailabilityWindow{Weekday: wd, Start: 9 * 60, End: 17 * 60, Type: scheduling.TypeClinic},
			scheduling.AvailabilityWindow{Weekday: wd, Start: 9 * 60, End: 17 * 60, Type: scheduling.TypeVideo},
		)
	}

	patient := &scheduling.Patient{ID: uuid.New(), Name: "Rina Das"}

	dir := &testDirectory{
		doctors:  map[uuid.UUID]*scheduling.Doctor{doctor.ID: doctor},
		patients: map[uuid.UUID]*scheduling.Patient{patient.ID: patient},
	}

	store := scheduling.NewMemoryStore()
	cfg := config.Config{Timezone: time.UTC, MaxHorizonDays: 90}
	sched := scheduling.NewService(store, dir, scheduling.NewLocalLocker(time.Second), nil, cfg)
	presc := prescription.NewService(&memPrescriptionRepo{}, store)

	handler := NewRouter(RouterConfig{
		Scheduler:     sched,
		Prescriptions: presc,
		Directory:     dir,
		Log:           zap.NewNop(),
		Timezone:      time.UTC,
		Env:           "test",
		Version:       "test",
	})

	return &testEnv{handler: handler, doctor: doctor, patient: patient}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// tomorrowAt returns the booking payload date/time strings for tomorrow in
// UTC, offset slots of 30 minutes from 09:00.
func tomorrowAt(slot int) (string, string) {
	day := time.Now().UTC().AddDate(0, 0, 1)
	at := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC).
		Add(time.Duration(slot) * 30 * time.Minute)
	return at.Format("2006-01-02"), at.Format("15:04")
}

func (e *testEnv) bookReq(slot int) BookAppointmentRequest {
	date, tod := tomorrowAt(slot)
	return BookAppointmentRequest{
		DoctorID:         e.doctor.ID.String(),
		PatientID:        e.patient.ID.String(),
		ConsultationType: "clinic",
		Date:             date,
		Time:             tod,
		Symptoms:         "persistent rash",
	}
}

func TestBookAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	req := env.bookReq(0)

	rec := env.do(t, http.MethodPost, "/appointments", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, int64(5000), resp.FeeCents)
	assert.Equal(t, req.Date, resp.Date)
	assert.Equal(t, req.Time, resp.Time)
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, "Dr. Ayesha Khan", resp.DoctorName)
	assert.Equal(t, "Rina Das", resp.PatientName)

	// Same slot again conflicts.
	rec = env.do(t, http.MethodPost, "/appointments", req)
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "slot_unavailable", errResp.Error)
}

func TestBookAppointmentValidation(t *testing.T) {
	env := newTestEnv(t)

	req := env.bookReq(0)
	req.ConsultationType = "telepathy"
	rec := env.do(t, http.MethodPost, "/appointments", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = env.bookReq(0)
	req.DoctorID = "not-a-uuid"
	rec = env.do(t, http.MethodPost, "/appointments", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = env.bookReq(0)
	req.Date = "06-01-2025"
	rec = env.do(t, http.MethodPost, "/appointments", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = env.bookReq(0)
	req.DoctorID = uuid.NewString()
	rec = env.do(t, http.MethodPost, "/appointments", req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "doctor_not_found", errResp.Error)
}

func TestConfirmAndCancelFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", env.bookReq(0))
	require.Equal(t, http.StatusCreated, rec.Code)
	appt := decodeBody[AppointmentResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/appointments/"+appt.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decodeBody[AppointmentResponse](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/appointments/"+appt.ID+"/cancel", CancelRequest{Reason: "feeling better"})
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "feeling better", cancelled.CancelReason)

	rec = env.do(t, http.MethodPost, "/appointments/"+appt.ID+"/cancel", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "illegal_transition", decodeBody[ErrorResponse](t, rec).Error)
}

func TestRescheduleEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", env.bookReq(0))
	require.Equal(t, http.StatusCreated, rec.Code)
	appt := decodeBody[AppointmentResponse](t, rec)

	date, tod := tomorrowAt(2)
	rec = env.do(t, http.MethodPost, "/appointments/"+appt.ID+"/reschedule", RescheduleRequest{Date: date, Time: tod})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	moved := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, appt.ID, moved.ID)
	assert.Equal(t, tod, moved.Time)
	assert.Equal(t, "pending", moved.Status)
	assert.Equal(t, appt.FeeCents, moved.FeeCents)
}

func TestDoctorSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	date, _ := tomorrowAt(0)
	path := fmt.Sprintf("/doctors/%s/slots?type=clinic&from=%s&to=%s&per_page=5", env.doctor.ID, date, date)

	rec := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	slots := decodeBody[SlotsResponse](t, rec)
	require.Len(t, slots.Slots, 5)
	assert.Equal(t, "09:00", slots.Slots[0].Time)
	assert.True(t, slots.Slots[0].Available)

	rec = env.do(t, http.MethodPost, "/appointments", env.bookReq(0))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots = decodeBody[SlotsResponse](t, rec)
	assert.False(t, slots.Slots[0].Available, "booked slot shows unavailable")
	assert.True(t, slots.Slots[1].Available)
}

func TestListAppointmentsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/appointments", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "doctorId or patientId is required")

	for slot := 0; slot < 2; slot++ {
		rec = env.do(t, http.MethodPost, "/appointments", env.bookReq(slot))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/appointments?patientId="+env.patient.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]AppointmentResponse](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Rina Das", list[0].PatientName)
	assert.True(t, list[0].Time < list[1].Time, "ordered by start time")

	rec = env.do(t, http.MethodGet, "/appointments?doctorId="+env.doctor.ID.String()+"&status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]AppointmentResponse](t, rec), 2)
}

func TestGetAppointmentNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/appointments/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrescriptionAndHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", env.bookReq(0))
	require.Equal(t, http.StatusCreated, rec.Code)
	appt := decodeBody[AppointmentResponse](t, rec)

	issue := CreatePrescriptionRequest{
		AppointmentID: appt.ID,
		DoctorID:      env.doctor.ID.String(),
		MedicineName:  "Cetirizine",
		Dosage:        "10mg",
		Instructions:  "once daily after dinner",
	}
	rec = env.do(t, http.MethodPost, "/prescriptions", issue)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decodeBody[PrescriptionResponse](t, rec)
	assert.Equal(t, env.patient.ID.String(), p.PatientID, "patient comes from the appointment")
	assert.Equal(t, "active", p.Status)

	// A different doctor cannot prescribe on this appointment.
	issue.DoctorID = uuid.NewString()
	rec = env.do(t, http.MethodPost, "/prescriptions", issue)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	record := CreateRecordRequest{
		PatientID: env.patient.ID.String(),
		DoctorID:  env.doctor.ID.String(),
		Diagnosis: "contact dermatitis",
		Treatment: "topical corticosteroid",
	}
	rec = env.do(t, http.MethodPost, "/medical-records", record)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/patients/"+env.patient.ID.String()+"/medical-history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decodeBody[MedicalHistoryResponse](t, rec)
	assert.Len(t, hist.Prescriptions, 1)
	assert.Len(t, hist.Records, 1)
	assert.Empty(t, hist.Appointments, "only completed appointments appear in history")

	rec = env.do(t, http.MethodGet, "/prescriptions?doctorId="+env.doctor.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]PrescriptionResponse](t, rec), 1)
}
