package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibook/scheduling-service/internal/prescription"
	"github.com/medibook/scheduling-service/internal/scheduling"
)

type Handlers struct {
	sched         *scheduling.Service
	prescriptions *prescription.Service
	directory     scheduling.Directory
	validate      *validator.Validate
	tz            *time.Location
	log           *zap.Logger
}

func NewHandlers(sched *scheduling.Service, prescriptions *prescription.Service, directory scheduling.Directory, tz *time.Location, log *zap.Logger) *Handlers {
	return &Handlers{
		sched:         sched,
		prescriptions: prescriptions,
		directory:     directory,
		validate:      validator.New(),
		tz:            tz,
		log:           log,
	}
}

func (h *Handlers) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func (h *Handlers) parseLocalDateTime(date, timeOfDay string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, h.tz)
}

func (h *Handlers) apptResponse(a *scheduling.Appointment, doctorName, patientName string) AppointmentResponse {
	local := a.Start.In(h.tz)
	return AppointmentResponse{
		ID:               a.ID.String(),
		DoctorID:         a.DoctorID.String(),
		PatientID:        a.PatientID.String(),
		DoctorName:       doctorName,
		PatientName:      patientName,
		ConsultationType: string(a.Type),
		Date:             local.Format("2006-01-02"),
		Time:             local.Format("15:04"),
		DurationMinutes:  int(a.End.Sub(a.Start).Minutes()),
		Status:           string(a.Status),
		Symptoms:         a.Symptoms,
		CancelReason:     a.CancelReason,
		FeeCents:         a.FeeCents,
	}
}

// resolveNames joins display names onto responses at read time. Names are
// cosmetic: a failed lookup leaves the field empty rather than failing the
// response.
func (h *Handlers) resolveNames(ctx context.Context, appts []scheduling.Appointment) (map[uuid.UUID]string, map[uuid.UUID]string) {
	doctors := make(map[uuid.UUID]string)
	patients := make(map[uuid.UUID]string)
	for i := range appts {
		a := &appts[i]
		if _, ok := doctors[a.DoctorID]; !ok {
			name := ""
			if d, err := h.directory.Doctor(ctx, a.DoctorID); err == nil {
				name = d.Name
			}
			doctors[a.DoctorID] = name
		}
		if _, ok := patients[a.PatientID]; !ok {
			name := ""
			if p, err := h.directory.Patient(ctx, a.PatientID); err == nil {
				name = p.Name
			}
			patients[a.PatientID] = name
		}
	}
	return doctors, patients
}

func (h *Handlers) writeAppointment(w http.ResponseWriter, r *http.Request, status int, a *scheduling.Appointment) {
	doctors, patients := h.resolveNames(r.Context(), []scheduling.Appointment{*a})
	writeJSON(w, status, h.apptResponse(a, doctors[a.DoctorID], patients[a.PatientID]))
}

func parseID(r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	return id, err == nil
}

// GET /doctors
func (h *Handlers) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.directory.ListDoctors(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]DoctorResponse, 0, len(doctors))
	for _, d := range doctors {
		resp = append(resp, DoctorResponse{
			ID:          d.ID.String(),
			Name:        d.Name,
			Specialty:   d.Specialty,
			SlotMinutes: d.SlotMinutes,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /doctors/{id}/slots
func (h *Handlers) DoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}

	q := r.URL.Query()
	ctype := scheduling.ConsultationType(q.Get("type"))

	now := time.Now().In(h.tz)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.tz)
	to := from.AddDate(0, 0, 14)

	if v := q.Get("from"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}
		to = d.AddDate(0, 0, 1) // inclusive date, exclusive instant
	}

	page := 1
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	perPage := 50
	if v := q.Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
		}
	}
	if perPage > 200 {
		perPage = 200
	}

	it, err := h.sched.AvailableSlots(r.Context(), doctorID, from, to, ctype)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if skip := (page - 1) * perPage; skip > 0 {
		it.Take(skip)
	}

	slots := it.Take(perPage)
	resp := SlotsResponse{
		DoctorID: doctorID.String(),
		Type:     string(ctype),
		Page:     page,
		PerPage:  perPage,
		Slots:    make([]SlotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		local := s.Start.In(h.tz)
		resp.Slots = append(resp.Slots, SlotResponse{
			Date:      local.Format("2006-01-02"),
			Time:      local.Format("15:04"),
			Type:      string(s.Type),
			Available: s.Available,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /appointments
func (h *Handlers) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	doctorID, _ := uuid.Parse(req.DoctorID)
	patientID, _ := uuid.Parse(req.PatientID)

	start, err := h.parseLocalDateTime(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "date/time could not be parsed")
		return
	}

	appt, err := h.sched.Book(r.Context(), doctorID, patientID, scheduling.ConsultationType(req.ConsultationType), start, req.Symptoms)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeAppointment(w, r, http.StatusCreated, appt)
}

// GET /appointments/{id}
func (h *Handlers) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.sched.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeAppointment(w, r, http.StatusOK, appt)
}

// GET /appointments?doctorId=|patientId=
func (h *Handlers) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter scheduling.ListFilter
	if v := q.Get("status"); v != "" {
		filter.Statuses = []scheduling.Status{scheduling.Status(v)}
	}
	if v := q.Get("from"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		filter.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}
		end := d.AddDate(0, 0, 1)
		filter.To = &end
	}

	var (
		appts []scheduling.Appointment
		err   error
	)
	switch {
	case q.Get("doctorId") != "":
		doctorID, perr := uuid.Parse(q.Get("doctorId"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be a valid UUID")
			return
		}
		appts, err = h.sched.ListForDoctor(r.Context(), doctorID, filter)
	case q.Get("patientId") != "":
		patientID, perr := uuid.Parse(q.Get("patientId"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientId must be a valid UUID")
			return
		}
		appts, err = h.sched.ListForPatient(r.Context(), patientID, filter)
	default:
		writeError(w, http.StatusBadRequest, "missing_filter", "doctorId or patientId is required")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	doctors, patients := h.resolveNames(r.Context(), appts)
	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		a := &appts[i]
		resp = append(resp, h.apptResponse(a, doctors[a.DoctorID], patients[a.PatientID]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /appointments/{id}/confirm
func (h *Handlers) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
		return h.sched.Confirm(ctx, id)
	})
}

// POST /appointments/{id}/complete
func (h *Handlers) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
		return h.sched.Complete(ctx, id)
	})
}

// POST /appointments/{id}/cancel
func (h *Handlers) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}
	}
	h.transition(w, r, func(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
		return h.sched.Cancel(ctx, id, req.Reason)
	})
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeAppointment(w, r, http.StatusOK, appt)
}

// POST /appointments/{id}/reschedule
func (h *Handlers) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req RescheduleRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	newStart, err := h.parseLocalDateTime(req.Date, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "date/time could not be parsed")
		return
	}

	appt, err := h.sched.Reschedule(r.Context(), id, newStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeAppointment(w, r, http.StatusOK, appt)
}

// POST /prescriptions
func (h *Handlers) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var req CreatePrescriptionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	appointmentID, _ := uuid.Parse(req.AppointmentID)
	doctorID, _ := uuid.Parse(req.DoctorID)

	p, err := h.prescriptions.Issue(r.Context(), prescription.IssueInput{
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		MedicineName:  req.MedicineName,
		Dosage:        req.Dosage,
		Instructions:  req.Instructions,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prescriptionResponse(p))
}

// GET /prescriptions?doctorId=|patientId=
func (h *Handlers) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		list []prescription.Prescription
		err  error
	)
	switch {
	case q.Get("doctorId") != "":
		doctorID, perr := uuid.Parse(q.Get("doctorId"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be a valid UUID")
			return
		}
		list, err = h.prescriptions.ListForDoctor(r.Context(), doctorID)
	case q.Get("patientId") != "":
		patientID, perr := uuid.Parse(q.Get("patientId"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientId must be a valid UUID")
			return
		}
		list, err = h.prescriptions.ListForPatient(r.Context(), patientID)
	default:
		writeError(w, http.StatusBadRequest, "missing_filter", "doctorId or patientId is required")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]PrescriptionResponse, 0, len(list))
	for i := range list {
		resp = append(resp, prescriptionResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /medical-records
func (h *Handlers) CreateMedicalRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	patientID, _ := uuid.Parse(req.PatientID)
	doctorID, _ := uuid.Parse(req.DoctorID)

	rec, err := h.prescriptions.AddRecord(r.Context(), prescription.RecordInput{
		PatientID: patientID,
		DoctorID:  doctorID,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse(rec))
}

// GET /patients/{id}/medical-history
func (h *Handlers) MedicalHistory(w http.ResponseWriter, r *http.Request) {
	patientID, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
		return
	}

	hist, err := h.prescriptions.History(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	doctors, patients := h.resolveNames(r.Context(), hist.Appointments)
	resp := MedicalHistoryResponse{
		PatientID:     patientID.String(),
		Appointments:  make([]AppointmentResponse, 0, len(hist.Appointments)),
		Prescriptions: make([]PrescriptionResponse, 0, len(hist.Prescriptions)),
		Records:       make([]MedicalRecordResponse, 0, len(hist.Records)),
	}
	for i := range hist.Appointments {
		a := &hist.Appointments[i]
		resp.Appointments = append(resp.Appointments, h.apptResponse(a, doctors[a.DoctorID], patients[a.PatientID]))
	}
	for i := range hist.Prescriptions {
		resp.Prescriptions = append(resp.Prescriptions, prescriptionResponse(&hist.Prescriptions[i]))
	}
	for i := range hist.Records {
		resp.Records = append(resp.Records, recordResponse(&hist.Records[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func prescriptionResponse(p *prescription.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:            p.ID.String(),
		AppointmentID: p.AppointmentID.String(),
		DoctorID:      p.DoctorID.String(),
		PatientID:     p.PatientID.String(),
		MedicineName:  p.MedicineName,
		Dosage:        p.Dosage,
		Instructions:  p.Instructions,
		Status:        string(p.Status),
		PrescribedAt:  p.PrescribedAt,
	}
}

func recordResponse(rec *prescription.MedicalRecord) MedicalRecordResponse {
	return MedicalRecordResponse{
		ID:         rec.ID.String(),
		PatientID:  rec.PatientID.String(),
		DoctorID:   rec.DoctorID.String(),
		Diagnosis:  rec.Diagnosis,
		Treatment:  rec.Treatment,
		Notes:      rec.Notes,
		RecordedAt: rec.RecordedAt,
	}
}
