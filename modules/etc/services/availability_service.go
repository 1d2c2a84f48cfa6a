package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var ErrSlotUnavailable = serrors.NewError(
	"ETC_SLOT_UNAVAILABLE",
	"the requested slot is not available",
	"pick another slot from the availability endpoint",
)

// Day unavailability reasons. "Fully booked" is deliberately not one of them:
// a booked-out day still returns its slot grid with every slot unavailable.
const (
	ReasonClosed  = "CLOSED"
	ReasonBlocked = "BLOCKED"
)

type DayAvailability struct {
	Date      time.Time
	Available bool
	Reason    string
}

type Slot struct {
	StartAt   time.Time
	EndAt     time.Time
	Available bool
}

type DayResult struct {
	Slots       []Slot
	Unavailable bool
	Reason      string
}

// AvailabilityConfig carries the workflow defaults a location's own slot
// config can override.
type AvailabilityConfig struct {
	Location        *time.Location
	ServiceDuration time.Duration
	SlotGranularity time.Duration
}

func (c AvailabilityConfig) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// AvailabilityService computes bookable days and slots. Pure read-side; the
// authoritative capacity check happens again inside the booking transaction.
type AvailabilityService struct {
	locations location.Repository
	attempts  appointmentattempt.Repository
	cfg       AvailabilityConfig
}

func NewAvailabilityService(
	locations location.Repository,
	attempts appointmentattempt.Repository,
	cfg AvailabilityConfig,
) *AvailabilityService {
	if cfg.ServiceDuration <= 0 {
		cfg.ServiceDuration = 60 * time.Minute
	}
	if cfg.SlotGranularity <= 0 {
		cfg.SlotGranularity = 30 * time.Minute
	}
	return &AvailabilityService{locations: locations, attempts: attempts, cfg: cfg}
}

func (s *AvailabilityService) Locations(ctx context.Context) ([]location.Location, error) {
	return s.locations.GetAll(ctx)
}

// TimeLocation is the timezone day boundaries are computed in.
func (s *AvailabilityService) TimeLocation() *time.Location {
	return s.cfg.location()
}

// AvailableDates reports, for dayCount consecutive days starting at from,
// whether each day is open at all. Slot-level exhaustion is not considered
// here; callers drill into AvailableSlots for that.
func (s *AvailabilityService) AvailableDates(
	ctx context.Context,
	locationID uuid.UUID,
	from time.Time,
	dayCount int,
) ([]DayAvailability, error) {
	if _, err := s.locations.GetByID(ctx, locationID); err != nil {
		return nil, err
	}
	schedule, err := s.locations.GetWeeklySchedule(ctx, locationID)
	if err != nil {
		return nil, err
	}
	byWeekday := make(map[time.Weekday]location.DaySchedule, len(schedule))
	for _, d := range schedule {
		byWeekday[d.Weekday] = d
	}

	tz := s.cfg.location()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, tz)

	out := make([]DayAvailability, 0, dayCount)
	for i := 0; i < dayCount; i++ {
		date := day.AddDate(0, 0, i)
		entry := DayAvailability{Date: date}

		sched, ok := byWeekday[date.Weekday()]
		if !ok || !sched.Open {
			entry.Reason = ReasonClosed
			out = append(out, entry)
			continue
		}

		blocks, err := s.locations.GetBlocksOn(ctx, locationID, date)
		if err != nil {
			return nil, err
		}
		if hasFullDayBlock(blocks) {
			entry.Reason = ReasonBlocked
			out = append(out, entry)
			continue
		}

		entry.Available = true
		out = append(out, entry)
	}
	return out, nil
}

// AvailableSlots returns the slot grid for one day. Unavailable is set with a
// Reason only when the day itself is closed or fully blocked; a fully booked
// day comes back as a grid of unavailable slots.
func (s *AvailabilityService) AvailableSlots(
	ctx context.Context,
	locationID uuid.UUID,
	date time.Time,
) (DayResult, error) {
	if _, err := s.locations.GetByID(ctx, locationID); err != nil {
		return DayResult{}, err
	}

	tz := s.cfg.location()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, tz)

	sched, ok, err := s.scheduleFor(ctx, locationID, day.Weekday())
	if err != nil {
		return DayResult{}, err
	}
	if !ok || !sched.Open {
		return DayResult{Unavailable: true, Reason: ReasonClosed}, nil
	}

	blocks, err := s.locations.GetBlocksOn(ctx, locationID, day)
	if err != nil {
		return DayResult{}, err
	}
	if hasFullDayBlock(blocks) {
		return DayResult{Unavailable: true, Reason: ReasonBlocked}, nil
	}

	rules, err := s.locations.GetCapacityRules(ctx, locationID)
	if err != nil {
		return DayResult{}, err
	}
	duration, granularity, err := s.slotParams(ctx, locationID)
	if err != nil {
		return DayResult{}, err
	}

	durMin := int(duration.Minutes())
	stepMin := int(granularity.Minutes())

	var slots []Slot
	for minute := sched.OpensAtMinute; minute+durMin <= sched.ClosesAtMinute; minute += stepMin {
		start := day.Add(time.Duration(minute) * time.Minute)
		slot := Slot{StartAt: start, EndAt: start.Add(duration)}

		if blockedAt(blocks, minute) {
			slots = append(slots, slot)
			continue
		}

		capacity, limited := capacityAt(rules, minute)
		if limited {
			used, err := s.attempts.CountAtSlot(ctx, locationID, start)
			if err != nil {
				return DayResult{}, err
			}
			if used >= capacity {
				slots = append(slots, slot)
				continue
			}
		}

		slot.Available = true
		slots = append(slots, slot)
	}
	return DayResult{Slots: slots}, nil
}

// EnsureBookable verifies that start is a legal, open, uncapped slot boundary.
// Booking calls it again under the request row lock so two racing bookings
// cannot both pass the capacity check.
func (s *AvailabilityService) EnsureBookable(
	ctx context.Context,
	locationID uuid.UUID,
	start time.Time,
) error {
	tz := s.cfg.location()
	start = start.In(tz)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, tz)
	minute := int(start.Sub(day).Minutes())

	sched, ok, err := s.scheduleFor(ctx, locationID, day.Weekday())
	if err != nil {
		return err
	}
	if !ok || !sched.Open {
		return ErrSlotUnavailable.WithMessage("location is closed that day")
	}

	duration, granularity, err := s.slotParams(ctx, locationID)
	if err != nil {
		return err
	}
	durMin := int(duration.Minutes())
	stepMin := int(granularity.Minutes())
	if minute < sched.OpensAtMinute ||
		minute+durMin > sched.ClosesAtMinute ||
		(minute-sched.OpensAtMinute)%stepMin != 0 {
		return ErrSlotUnavailable.WithMessage("start time is not a valid slot boundary")
	}

	blocks, err := s.locations.GetBlocksOn(ctx, locationID, day)
	if err != nil {
		return err
	}
	if hasFullDayBlock(blocks) || blockedAt(blocks, minute) {
		return ErrSlotUnavailable.WithMessage("slot falls inside a calendar block")
	}

	rules, err := s.locations.GetCapacityRules(ctx, locationID)
	if err != nil {
		return err
	}
	if capacity, limited := capacityAt(rules, minute); limited {
		used, err := s.attempts.CountAtSlot(ctx, locationID, day.Add(time.Duration(minute)*time.Minute))
		if err != nil {
			return err
		}
		if used >= capacity {
			return ErrSlotUnavailable.WithMessage("slot is fully booked")
		}
	}
	return nil
}

// ServiceDuration resolves the effective installation duration for a location.
func (s *AvailabilityService) ServiceDuration(ctx context.Context, locationID uuid.UUID) (time.Duration, error) {
	duration, _, err := s.slotParams(ctx, locationID)
	return duration, err
}

func (s *AvailabilityService) scheduleFor(
	ctx context.Context,
	locationID uuid.UUID,
	weekday time.Weekday,
) (location.DaySchedule, bool, error) {
	schedule, err := s.locations.GetWeeklySchedule(ctx, locationID)
	if err != nil {
		return location.DaySchedule{}, false, err
	}
	for _, d := range schedule {
		if d.Weekday == weekday {
			return d, true, nil
		}
	}
	return location.DaySchedule{}, false, nil
}

func (s *AvailabilityService) slotParams(
	ctx context.Context,
	locationID uuid.UUID,
) (duration, granularity time.Duration, err error) {
	cfg, err := s.locations.GetSlotConfig(ctx, locationID)
	if err != nil {
		return 0, 0, err
	}
	duration = s.cfg.ServiceDuration
	if cfg.ServiceDurationMinutes > 0 {
		duration = time.Duration(cfg.ServiceDurationMinutes) * time.Minute
	}
	granularity = s.cfg.SlotGranularity
	if cfg.GranularityMinutes > 0 {
		granularity = time.Duration(cfg.GranularityMinutes) * time.Minute
	}
	return duration, granularity, nil
}

func hasFullDayBlock(blocks []location.CalendarBlock) bool {
	for _, b := range blocks {
		if b.Kind == location.BlockFullDay {
			return true
		}
	}
	return false
}

func blockedAt(blocks []location.CalendarBlock, minute int) bool {
	for _, b := range blocks {
		if b.Kind == location.BlockPartial && b.Covers(minute) {
			return true
		}
	}
	return false
}

// capacityAt returns the tightest capacity rule applying to the slot minute.
// No applicable rule means unbounded.
func capacityAt(rules []location.CapacityRule, minute int) (int, bool) {
	capacity, limited := 0, false
	for _, r := range rules {
		if !r.AppliesTo(minute) {
			continue
		}
		if !limited || r.Capacity < capacity {
			capacity = r.Capacity
			limited = true
		}
	}
	return capacity, limited
}
