package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrDoctorNotFound              = errors.New("doctor not found")
	ErrPatientNotFound             = errors.New("patient not found")
	ErrAppointmentNotFound         = errors.New("appointment not found")
	ErrSlotUnavailable             = errors.New("slot is not available")
	ErrIllegalTransition           = errors.New("illegal status transition")
	ErrUnsupportedConsultationType = errors.New("doctor does not offer this consultation type")
	ErrBusy                        = errors.New("doctor schedule is contended, please retry")
	ErrValidation                  = errors.New("invalid input")

	// ErrLockNotAcquired is returned by DoctorLocker implementations when the
	// per-doctor critical section could not be entered within the bounded wait.
	ErrLockNotAcquired = errors.New("doctor lock not acquired")
)

// IllegalTransitionError names the current and requested state.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %q to %q", e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
