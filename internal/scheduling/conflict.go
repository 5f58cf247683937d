package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// overlaps implements half-open interval semantics: [aStart, aEnd) and
// [bStart, bEnd) conflict iff they share any non-zero duration.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// hasConflict scans a doctor's appointments for a collision with the
// candidate interval. Terminal appointments do not occupy the calendar, and
// consultation type is irrelevant: a doctor cannot hold two appointments of
// any kind at once. exclude lets reschedule ignore the appointment's own
// current slot; pass uuid.Nil otherwise.
//
// Callers on a write path must evaluate this inside the same transaction as
// the dependent write.
func hasConflict(appts []Appointment, start, end time.Time, exclude uuid.UUID) bool {
	for i := range appts {
		a := &appts[i]
		if a.Status.Terminal() {
			continue
		}
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		if overlaps(start, end, a.Start, a.End) {
			return true
		}
	}
	return false
}
