package location

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var ErrNotFound = serrors.NewError("ETC_LOCATION_NOT_FOUND", "location does not exist", "")

type Repository interface {
	GetAll(ctx context.Context) ([]Location, error)
	GetByID(ctx context.Context, id uuid.UUID) (Location, error)
	GetWeeklySchedule(ctx context.Context, locationID uuid.UUID) ([]DaySchedule, error)
	GetCapacityRules(ctx context.Context, locationID uuid.UUID) ([]CapacityRule, error)
	// GetBlocksOn returns calendar blocks whose date matches the given day.
	GetBlocksOn(ctx context.Context, locationID uuid.UUID, date time.Time) ([]CalendarBlock, error)
	GetSlotConfig(ctx context.Context, locationID uuid.UUID) (SlotConfig, error)
}
