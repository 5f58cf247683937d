package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// SlotIterator lazily walks a doctor's bookable slots across a date range,
// one day at a time, so callers can take a page without materializing the
// whole horizon. It is restartable via Reset and is a pure view over the
// busy set captured at construction.
type SlotIterator struct {
	doctor *Doctor
	ctype  ConsultationType
	loc    *time.Location
	busy   []Appointment

	from time.Time // range start, inclusive
	to   time.Time // range end, exclusive

	day   time.Time // midnight of the next day to expand
	queue []Slot
}

func newSlotIterator(doctor *Doctor, ctype ConsultationType, busy []Appointment, from, to time.Time, loc *time.Location) *SlotIterator {
	it := &SlotIterator{
		doctor: doctor,
		ctype:  ctype,
		loc:    loc,
		busy:   busy,
		from:   from.In(loc),
		to:     to.In(loc),
	}
	it.Reset()
	return it
}

// Reset rewinds the iterator to the start of the range.
func (it *SlotIterator) Reset() {
	y, m, d := it.from.Date()
	it.day = time.Date(y, m, d, 0, 0, 0, 0, it.loc)
	it.queue = nil
}

// Next returns the next slot in start-time order, and false once the range
// is exhausted.
func (it *SlotIterator) Next() (Slot, bool) {
	for len(it.queue) == 0 {
		if !it.day.Before(it.to) {
			return Slot{}, false
		}
		it.queue = it.slotsForDay(it.day)
		it.day = it.day.AddDate(0, 0, 1)
	}
	s := it.queue[0]
	it.queue = it.queue[1:]
	return s, true
}

// Take drains up to n slots. A short or empty result means the range is
// exhausted.
func (it *SlotIterator) Take(n int) []Slot {
	out := make([]Slot, 0, n)
	for len(out) < n {
		s, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

func (it *SlotIterator) slotsForDay(day time.Time) []Slot {
	step := it.doctor.SlotDuration()
	var slots []Slot

	for _, w := range it.doctor.Windows {
		if w.Weekday != day.Weekday() || w.Type != it.ctype {
			continue
		}
		for t := w.Start; t+TimeOfDay(step.Minutes()) <= w.End; t += TimeOfDay(step.Minutes()) {
			start := time.Date(day.Year(), day.Month(), day.Day(), int(t)/60, int(t)%60, 0, 0, it.loc)
			end := start.Add(step)
			if start.Before(it.from) || end.After(it.to) {
				continue
			}
			slots = append(slots, Slot{
				Start:     start,
				End:       end,
				Type:      it.ctype,
				Available: !hasConflict(it.busy, start, end, uuid.Nil),
			})
		}
	}
	return slots
}

// withinAvailability reports whether [start, end) falls inside one of the
// doctor's recurring windows for the type, aligned to the slot granularity.
// Booking validates against this so that only slots the availability model
// would report can ever be created.
func withinAvailability(d *Doctor, ctype ConsultationType, start, end time.Time, loc *time.Location) bool {
	start = start.In(loc)
	end = end.In(loc)
	startMin := TimeOfDay(start.Hour()*60 + start.Minute())
	endMin := TimeOfDay(end.Hour()*60 + end.Minute())
	if endMin == 0 && end.Day() != start.Day() {
		endMin = 24 * 60
	}
	if start.Second() != 0 || start.Nanosecond() != 0 {
		return false
	}

	stepMin := TimeOfDay(d.SlotDuration().Minutes())
	for _, w := range d.Windows {
		if w.Weekday != start.Weekday() || w.Type != ctype {
			continue
		}
		if startMin < w.Start || endMin > w.End {
			continue
		}
		if (startMin-w.Start)%stepMin != 0 {
			continue
		}
		return true
	}
	return false
}
