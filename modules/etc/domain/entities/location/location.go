package location

import (
	"time"

	"github.com/google/uuid"
)

// Location is an installation site where tags are fitted to vehicles.
type Location struct {
	ID      uuid.UUID
	Name    string
	Address string
	Phone   string
	Active  bool
}

// DaySchedule is one weekday row of a location's weekly schedule. Times are
// minutes from local midnight.
type DaySchedule struct {
	Weekday        time.Weekday
	Open           bool
	OpensAtMinute  int
	ClosesAtMinute int
}

// CapacityRule bounds parallel installations for a window of the day. A rule
// with a zero window applies to the whole day.
type CapacityRule struct {
	StartMinute int
	EndMinute   int
	Capacity    int
}

// AppliesTo reports whether the slot starting at the given minute falls under
// this rule's window.
func (r CapacityRule) AppliesTo(minute int) bool {
	if r.StartMinute == 0 && r.EndMinute == 0 {
		return true
	}
	return minute >= r.StartMinute && minute < r.EndMinute
}

type BlockKind string

const (
	BlockFullDay BlockKind = "FULL_DAY"
	BlockPartial BlockKind = "PARTIAL"
)

// CalendarBlock is a one-off closure: a whole day or a window within it.
type CalendarBlock struct {
	ID          uuid.UUID
	LocationID  uuid.UUID
	Date        time.Time
	Kind        BlockKind
	StartMinute int
	EndMinute   int
	Reason      string
}

// Covers reports whether the block makes the slot starting at the given minute
// unavailable.
func (b CalendarBlock) Covers(minute int) bool {
	if b.Kind == BlockFullDay {
		return true
	}
	return minute >= b.StartMinute && minute < b.EndMinute
}

// SlotConfig holds the location's service duration and slot granularity in
// minutes. Zero values fall back to the workflow defaults.
type SlotConfig struct {
	ServiceDurationMinutes int
	GranularityMinutes     int
}
