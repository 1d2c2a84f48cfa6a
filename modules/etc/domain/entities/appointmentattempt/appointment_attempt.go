package appointmentattempt

import (
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeUserPicked    Mode = "USER_PICKED"
	ModeStaffAssigned Mode = "STAFF_ASSIGNED"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
	StatusCancelled Status = "CANCELLED"
	// StatusSuperseded tags the attempt a reschedule replaced. Distinct from
	// CANCELLED so the audit trail shows what actually happened.
	StatusSuperseded Status = "SUPERSEDED"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled, StatusSuperseded:
		return true
	default:
		return false
	}
}

// ConsumesCapacity reports whether the attempt occupies its slot for the
// availability computation.
func (s Status) ConsumesCapacity() bool {
	return s == StatusConfirmed || s == StatusPending
}

// AppointmentAttempt is one try at booking a tag-installation visit. A
// reschedule always creates a fresh attempt; terminal attempts are never
// resurrected.
type AppointmentAttempt struct {
	id               uuid.UUID
	requestID        uuid.UUID
	attemptNo        int
	locationID       uuid.UUID
	scheduledStartAt time.Time
	scheduledEndAt   time.Time
	mode             Mode
	status           Status
	createdAt        time.Time
	updatedAt        time.Time
}

func New(
	requestID uuid.UUID,
	attemptNo int,
	locationID uuid.UUID,
	start, end time.Time,
	mode Mode,
) AppointmentAttempt {
	return AppointmentAttempt{
		requestID:        requestID,
		attemptNo:        attemptNo,
		locationID:       locationID,
		scheduledStartAt: start,
		scheduledEndAt:   end,
		mode:             mode,
		status:           StatusConfirmed,
	}
}

func Hydrate(
	id uuid.UUID,
	requestID uuid.UUID,
	attemptNo int,
	locationID uuid.UUID,
	start, end time.Time,
	mode Mode,
	status Status,
	createdAt, updatedAt time.Time,
) AppointmentAttempt {
	return AppointmentAttempt{
		id:               id,
		requestID:        requestID,
		attemptNo:        attemptNo,
		locationID:       locationID,
		scheduledStartAt: start,
		scheduledEndAt:   end,
		mode:             mode,
		status:           status,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (a AppointmentAttempt) ID() uuid.UUID               { return a.id }
func (a AppointmentAttempt) RequestID() uuid.UUID        { return a.requestID }
func (a AppointmentAttempt) AttemptNo() int              { return a.attemptNo }
func (a AppointmentAttempt) LocationID() uuid.UUID       { return a.locationID }
func (a AppointmentAttempt) ScheduledStartAt() time.Time { return a.scheduledStartAt }
func (a AppointmentAttempt) ScheduledEndAt() time.Time   { return a.scheduledEndAt }
func (a AppointmentAttempt) Mode() Mode                  { return a.mode }
func (a AppointmentAttempt) Status() Status              { return a.status }
func (a AppointmentAttempt) CreatedAt() time.Time        { return a.createdAt }
func (a AppointmentAttempt) UpdatedAt() time.Time        { return a.updatedAt }
func (a AppointmentAttempt) IsZero() bool                { return a.id == uuid.Nil }

func (a AppointmentAttempt) WithStatus(s Status) AppointmentAttempt {
	a.status = s
	return a
}
