package api

import "time"

// Timestamps cross the API as an ISO date plus a time of day, interpreted in
// the deployment timezone. Clients never send raw instants.

type BookAppointmentRequest struct {
	DoctorID         string `json:"doctor_id" validate:"required,uuid"`
	PatientID        string `json:"patient_id" validate:"required,uuid"`
	ConsultationType string `json:"consultation_type" validate:"required,oneof=clinic video call"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string `json:"time" validate:"required,datetime=15:04"`
	Symptoms         string `json:"symptoms" validate:"max=2000"`
}

type RescheduleRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AppointmentResponse struct {
	ID               string `json:"id"`
	DoctorID         string `json:"doctor_id"`
	PatientID        string `json:"patient_id"`
	DoctorName       string `json:"doctor_name,omitempty"`
	PatientName      string `json:"patient_name,omitempty"`
	ConsultationType string `json:"consultation_type"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	DurationMinutes  int    `json:"duration_minutes"`
	Status           string `json:"status"`
	Symptoms         string `json:"symptoms,omitempty"`
	CancelReason     string `json:"cancel_reason,omitempty"`
	FeeCents         int64  `json:"fee_cents"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Type      string `json:"consultation_type"`
	Available bool   `json:"available"`
}

type SlotsResponse struct {
	DoctorID string         `json:"doctor_id"`
	Type     string         `json:"consultation_type"`
	Page     int            `json:"page"`
	PerPage  int            `json:"per_page"`
	Slots    []SlotResponse `json:"slots"`
}

type DoctorResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty"`
	SlotMinutes int    `json:"slot_minutes"`
}

type CreatePrescriptionRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	DoctorID      string `json:"doctor_id" validate:"required,uuid"`
	MedicineName  string `json:"medicine_name" validate:"required,max=200"`
	Dosage        string `json:"dosage" validate:"max=200"`
	Instructions  string `json:"instructions" validate:"max=2000"`
}

type PrescriptionResponse struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	MedicineName  string    `json:"medicine_name"`
	Dosage        string    `json:"dosage,omitempty"`
	Instructions  string    `json:"instructions,omitempty"`
	Status        string    `json:"status"`
	PrescribedAt  time.Time `json:"prescribed_at"`
}

type CreateRecordRequest struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	Diagnosis string `json:"diagnosis" validate:"required,max=2000"`
	Treatment string `json:"treatment" validate:"required,max=2000"`
	Notes     string `json:"notes" validate:"max=4000"`
}

type MedicalRecordResponse struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id"`
	DoctorID   string    `json:"doctor_id"`
	Diagnosis  string    `json:"diagnosis"`
	Treatment  string    `json:"treatment"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type MedicalHistoryResponse struct {
	PatientID     string                  `json:"patient_id"`
	Appointments  []AppointmentResponse   `json:"appointments"`
	Prescriptions []PrescriptionResponse  `json:"prescriptions"`
	Records       []MedicalRecordResponse `json:"records"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
