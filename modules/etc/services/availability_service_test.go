package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
)

// monday is a fixed weekday so schedule assertions do not depend on the wall
// clock. 2026-03-09 is a Monday.
var monday = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func TestAvailableDates(t *testing.T) {
	w := newWorkflow()
	w.locations.blocks = append(w.locations.blocks, location.CalendarBlock{
		LocationID: w.locations.loc.ID,
		Date:       monday.AddDate(0, 0, 1),
		Kind:       location.BlockFullDay,
		Reason:     "public holiday",
	})

	days, err := w.availability.AvailableDates(txContext(), w.locations.loc.ID, monday, 7)
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.True(t, days[0].Available, "monday is open")
	assert.False(t, days[1].Available, "tuesday is blocked")
	assert.Equal(t, ReasonBlocked, days[1].Reason)
	assert.True(t, days[2].Available)
	assert.False(t, days[5].Available, "saturday is closed")
	assert.Equal(t, ReasonClosed, days[5].Reason)
	assert.False(t, days[6].Available, "sunday is closed")
}

func TestAvailableDatesUnknownLocation(t *testing.T) {
	w := newWorkflow()
	_, err := w.availability.AvailableDates(txContext(), uuid.New(), monday, 7)
	require.ErrorIs(t, err, location.ErrNotFound)
}

func TestAvailableSlotsGrid(t *testing.T) {
	w := newWorkflow()

	result, err := w.availability.AvailableSlots(txContext(), w.locations.loc.ID, monday)
	require.NoError(t, err)
	assert.False(t, result.Unavailable)

	// 09:00-17:00, 60-minute service on a 30-minute grid: last start 16:00.
	require.Len(t, result.Slots, 15)
	assert.True(t, result.Slots[0].StartAt.Equal(monday.Add(9*time.Hour)))
	last := result.Slots[len(result.Slots)-1]
	assert.True(t, last.StartAt.Equal(monday.Add(16*time.Hour)))
	assert.True(t, last.EndAt.Equal(monday.Add(17*time.Hour)))
	for _, slot := range result.Slots {
		assert.True(t, slot.Available)
	}
}

func TestAvailableSlotsClosedDay(t *testing.T) {
	w := newWorkflow()
	saturday := monday.AddDate(0, 0, 5)

	result, err := w.availability.AvailableSlots(txContext(), w.locations.loc.ID, saturday)
	require.NoError(t, err)
	assert.True(t, result.Unavailable)
	assert.Equal(t, ReasonClosed, result.Reason)
	assert.Empty(t, result.Slots)
}

func TestAvailableSlotsPartialBlock(t *testing.T) {
	w := newWorkflow()
	w.locations.blocks = append(w.locations.blocks, location.CalendarBlock{
		LocationID:  w.locations.loc.ID,
		Date:        monday,
		Kind:        location.BlockPartial,
		StartMinute: 12 * 60,
		EndMinute:   13 * 60,
		Reason:      "lunch",
	})

	result, err := w.availability.AvailableSlots(txContext(), w.locations.loc.ID, monday)
	require.NoError(t, err)
	for _, slot := range result.Slots {
		minute := slot.StartAt.Hour()*60 + slot.StartAt.Minute()
		inBlock := minute >= 12*60 && minute < 13*60
		assert.Equal(t, !inBlock, slot.Available, "slot at %s", slot.StartAt)
	}
}

func TestAvailableSlotsCapacity(t *testing.T) {
	w := newWorkflow()
	w.locations.rules = []location.CapacityRule{{Capacity: 1}}

	nineAM := monday.Add(9 * time.Hour)
	_, err := w.appointments.Create(txContext(), appointmentattempt.New(
		uuid.New(), 1, w.locations.loc.ID, nineAM, nineAM.Add(time.Hour), appointmentattempt.ModeUserPicked,
	))
	require.NoError(t, err)

	result, err := w.availability.AvailableSlots(txContext(), w.locations.loc.ID, monday)
	require.NoError(t, err)
	assert.False(t, result.Unavailable, "a booked-out slot never hides the grid")
	assert.False(t, result.Slots[0].Available, "09:00 is at capacity")
	assert.True(t, result.Slots[1].Available, "09:30 is untouched")
}

func TestAvailableSlotsTerminalAttemptsFreeCapacity(t *testing.T) {
	w := newWorkflow()
	w.locations.rules = []location.CapacityRule{{Capacity: 1}}

	nineAM := monday.Add(9 * time.Hour)
	booked, err := w.appointments.Create(txContext(), appointmentattempt.New(
		uuid.New(), 1, w.locations.loc.ID, nineAM, nineAM.Add(time.Hour), appointmentattempt.ModeUserPicked,
	))
	require.NoError(t, err)
	_, err = w.appointments.Update(txContext(), booked.WithStatus(appointmentattempt.StatusCancelled))
	require.NoError(t, err)

	result, err := w.availability.AvailableSlots(txContext(), w.locations.loc.ID, monday)
	require.NoError(t, err)
	assert.True(t, result.Slots[0].Available, "cancelled attempts release the slot")
}

func TestEnsureBookable(t *testing.T) {
	w := newWorkflow()

	require.NoError(t, w.availability.EnsureBookable(txContext(), w.locations.loc.ID, monday.Add(10*time.Hour)))

	err := w.availability.EnsureBookable(txContext(), w.locations.loc.ID, monday.Add(10*time.Hour+15*time.Minute))
	require.ErrorIs(t, err, ErrSlotUnavailable, "off-grid start time")

	err = w.availability.EnsureBookable(txContext(), w.locations.loc.ID, monday.Add(8*time.Hour))
	require.ErrorIs(t, err, ErrSlotUnavailable, "before opening")

	err = w.availability.EnsureBookable(txContext(), w.locations.loc.ID, monday.Add(16*time.Hour+30*time.Minute))
	require.ErrorIs(t, err, ErrSlotUnavailable, "service would run past closing")

	saturday := monday.AddDate(0, 0, 5)
	err = w.availability.EnsureBookable(txContext(), w.locations.loc.ID, saturday.Add(10*time.Hour))
	require.ErrorIs(t, err, ErrSlotUnavailable, "closed day")
}

func TestEnsureBookableCapacity(t *testing.T) {
	w := newWorkflow()
	w.locations.rules = []location.CapacityRule{{Capacity: 1}}

	tenAM := monday.Add(10 * time.Hour)
	_, err := w.appointments.Create(txContext(), appointmentattempt.New(
		uuid.New(), 1, w.locations.loc.ID, tenAM, tenAM.Add(time.Hour), appointmentattempt.ModeUserPicked,
	))
	require.NoError(t, err)

	err = w.availability.EnsureBookable(txContext(), w.locations.loc.ID, tenAM)
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestSlotConfigOverridesDefaults(t *testing.T) {
	w := newWorkflow()
	w.locations.slotCfg = location.SlotConfig{ServiceDurationMinutes: 30, GranularityMinutes: 60}

	result, err := w.availability.AvailableSlots(txContext(), w.locations.loc.ID, monday)
	require.NoError(t, err)
	// 30-minute service on a 60-minute grid: 09:00 through 16:00 inclusive.
	require.Len(t, result.Slots, 8)
	assert.True(t, result.Slots[0].EndAt.Equal(monday.Add(9*time.Hour+30*time.Minute)))
}
