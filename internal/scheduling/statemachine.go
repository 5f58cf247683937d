package scheduling

import "time"

// transitions is the legal edge set of the appointment lifecycle.
// pending -> confirmed | cancelled
// confirmed -> cancelled | completed
// cancelled and completed are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a status change to the appointment, enforcing the edge
// set and the completion precondition (an appointment cannot be completed
// before its scheduled time).
func Transition(a *Appointment, to Status, now time.Time) error {
	if !CanTransition(a.Status, to) {
		return &IllegalTransitionError{From: a.Status, To: to}
	}
	if to == StatusCompleted && a.Start.After(now) {
		return &IllegalTransitionError{From: a.Status, To: to}
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

// CanReschedule reports whether the appointment may be moved to a new slot.
// Reschedule is not a plain edge: it keeps the record and resets the status
// to pending after re-validation.
func CanReschedule(s Status) bool {
	return s == StatusPending || s == StatusConfirmed
}
