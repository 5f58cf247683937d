package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mondayClinicDoctor() *Doctor {
	return &Doctor{
		ID:          uuid.New(),
		Name:        "Dr. Ayesha Khan",
		Specialty:   "Dermatology",
		SlotMinutes: 30,
		Windows: []AvailabilityWindow{
			{Weekday: time.Monday, Start: 9 * 60, End: 12 * 60, Type: TypeClinic},
		},
		Fees: map[ConsultationType]int64{TypeClinic: 5000},
	}
}

// 2025-01-06 is a Monday.
var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func TestSlotIteratorSubdividesWindows(t *testing.T) {
	doc := mondayClinicDoctor()
	it := newSlotIterator(doc, TypeClinic, nil, monday, monday.AddDate(0, 0, 7), time.UTC)

	var slots []Slot
	for {
		s, ok := it.Next()
		if !ok {
			break
		}
		slots = append(slots, s)
	}

	// One Monday in range, 09:00-12:00 at 30 minutes.
	require.Len(t, slots, 6)
	assert.Equal(t, monday.Add(9*time.Hour), slots[0].Start)
	assert.Equal(t, monday.Add(9*time.Hour+30*time.Minute), slots[0].End)
	assert.Equal(t, monday.Add(11*time.Hour+30*time.Minute), slots[5].Start)
	for _, s := range slots {
		assert.True(t, s.Available)
		assert.Equal(t, TypeClinic, s.Type)
	}
}

func TestSlotIteratorMarksBusySlots(t *testing.T) {
	doc := mondayClinicDoctor()
	busy := []Appointment{
		{
			ID:     uuid.New(),
			Status: StatusConfirmed,
			Start:  monday.Add(9 * time.Hour),
			End:    monday.Add(9*time.Hour + 30*time.Minute),
		},
		{
			ID:     uuid.New(),
			Status: StatusCancelled,
			Start:  monday.Add(10 * time.Hour),
			End:    monday.Add(10*time.Hour + 30*time.Minute),
		},
	}

	it := newSlotIterator(doc, TypeClinic, busy, monday, monday.AddDate(0, 0, 1), time.UTC)
	slots := it.Take(10)
	require.Len(t, slots, 6)

	assert.False(t, slots[0].Available, "09:00 is booked")
	assert.True(t, slots[1].Available)
	assert.True(t, slots[2].Available, "cancelled appointment frees the 10:00 slot")
}

func TestSlotIteratorIgnoresOtherTypesAndDays(t *testing.T) {
	doc := mondayClinicDoctor()

	it := newSlotIterator(doc, TypeVideo, nil, monday, monday.AddDate(0, 0, 7), time.UTC)
	_, ok := it.Next()
	assert.False(t, ok, "no video windows exist")

	tuesday := monday.AddDate(0, 0, 1)
	it = newSlotIterator(doc, TypeClinic, nil, tuesday, tuesday.AddDate(0, 0, 1), time.UTC)
	_, ok = it.Next()
	assert.False(t, ok, "no Tuesday windows exist")
}

func TestSlotIteratorTakeAndReset(t *testing.T) {
	doc := mondayClinicDoctor()
	it := newSlotIterator(doc, TypeClinic, nil, monday, monday.AddDate(0, 0, 14), time.UTC)

	page1 := it.Take(4)
	page2 := it.Take(4)
	require.Len(t, page1, 4)
	require.Len(t, page2, 4)
	assert.True(t, page1[3].Start.Before(page2[0].Start), "pages advance in start-time order")

	it.Reset()
	again := it.Take(4)
	assert.Equal(t, page1, again, "iterator is restartable")
}

func TestSlotIteratorRespectsRangeBounds(t *testing.T) {
	doc := mondayClinicDoctor()

	// Range starting mid-window drops the earlier slots.
	from := monday.Add(10 * time.Hour)
	it := newSlotIterator(doc, TypeClinic, nil, from, monday.AddDate(0, 0, 1), time.UTC)
	slots := it.Take(10)
	require.Len(t, slots, 4)
	assert.Equal(t, from, slots[0].Start)
}

func TestWithinAvailability(t *testing.T) {
	doc := mondayClinicDoctor()
	slot := func(h, m int) (time.Time, time.Time) {
		start := monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		return start, start.Add(30 * time.Minute)
	}

	s, e := slot(9, 0)
	assert.True(t, withinAvailability(doc, TypeClinic, s, e, time.UTC))

	s, e = slot(11, 30)
	assert.True(t, withinAvailability(doc, TypeClinic, s, e, time.UTC), "last slot of the window")

	s, e = slot(12, 0)
	assert.False(t, withinAvailability(doc, TypeClinic, s, e, time.UTC), "past the window end")

	s, e = slot(9, 15)
	assert.False(t, withinAvailability(doc, TypeClinic, s, e, time.UTC), "not aligned to granularity")

	s, e = slot(8, 30)
	assert.False(t, withinAvailability(doc, TypeClinic, s, e, time.UTC), "before the window")

	s, e = slot(9, 0)
	assert.False(t, withinAvailability(doc, TypeVideo, s, e, time.UTC), "wrong consultation type")

	tuesday := monday.AddDate(0, 0, 1)
	s = tuesday.Add(9 * time.Hour)
	assert.False(t, withinAvailability(doc, TypeClinic, s, s.Add(30*time.Minute), time.UTC), "wrong weekday")
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(570), tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("bogus")
	assert.Error(t, err)
}
