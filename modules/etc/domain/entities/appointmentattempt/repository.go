package appointmentattempt

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrNotFound     = serrors.NewError("ETC_APPOINTMENT_ATTEMPT_NOT_FOUND", "appointment attempt does not exist", "")
	ErrInvalidState = serrors.NewError("ETC_APPOINTMENT_ATTEMPT_INVALID_STATE", "appointment attempt is not in the required state", "")
	ErrNoActive     = serrors.NewError("ETC_APPOINTMENT_ATTEMPT_NO_ACTIVE", "request has no active appointment attempt", "")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (AppointmentAttempt, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]AppointmentAttempt, error)
	MaxAttemptNo(ctx context.Context, requestID uuid.UUID) (int, error)
	// CountAtSlot counts capacity-consuming attempts at the exact slot start
	// for a location. Cancelled, no-show and superseded attempts do not count.
	CountAtSlot(ctx context.Context, locationID uuid.UUID, startAt time.Time) (int, error)
	Create(ctx context.Context, attempt AppointmentAttempt) (AppointmentAttempt, error)
	Update(ctx context.Context, attempt AppointmentAttempt) (AppointmentAttempt, error)
}
