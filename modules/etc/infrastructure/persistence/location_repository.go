package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

type LocationRepository struct{}

func NewLocationRepository() location.Repository {
	return &LocationRepository{}
}

func (r *LocationRepository) GetAll(ctx context.Context) ([]location.Location, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT id, name, address, phone, active FROM etc_locations WHERE active ORDER BY name`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list locations")
	}
	defer rows.Close()

	var results []location.Location
	for rows.Next() {
		var m models.Location
		if err := rows.Scan(&m.ID, &m.Name, &m.Address, &m.Phone, &m.Active); err != nil {
			return nil, err
		}
		results = append(results, toDomainLocation(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id uuid.UUID) (location.Location, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return location.Location{}, err
	}
	var m models.Location
	err = tx.QueryRow(ctx,
		`SELECT id, name, address, phone, active FROM etc_locations WHERE id = $1`,
		id.String(),
	).Scan(&m.ID, &m.Name, &m.Address, &m.Phone, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.Location{}, location.ErrNotFound
		}
		return location.Location{}, errors.Wrap(err, "get location")
	}
	return toDomainLocation(&m), nil
}

func (r *LocationRepository) GetWeeklySchedule(ctx context.Context, locationID uuid.UUID) ([]location.DaySchedule, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT location_id, weekday, open, opens_at_minute, closes_at_minute
		FROM etc_location_schedules
		WHERE location_id = $1
		ORDER BY weekday`,
		locationID.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	defer rows.Close()

	var results []location.DaySchedule
	for rows.Next() {
		var m models.LocationSchedule
		if err := rows.Scan(
			&m.LocationID, &m.Weekday, &m.Open, &m.OpensAtMinute, &m.ClosesAtMinute,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainDaySchedule(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *LocationRepository) GetCapacityRules(ctx context.Context, locationID uuid.UUID) ([]location.CapacityRule, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT location_id, start_minute, end_minute, capacity
		FROM etc_location_capacity_rules
		WHERE location_id = $1
		ORDER BY start_minute`,
		locationID.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list capacity rules")
	}
	defer rows.Close()

	var results []location.CapacityRule
	for rows.Next() {
		var m models.LocationCapacityRule
		if err := rows.Scan(&m.LocationID, &m.StartMinute, &m.EndMinute, &m.Capacity); err != nil {
			return nil, err
		}
		results = append(results, toDomainCapacityRule(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *LocationRepository) GetBlocksOn(ctx context.Context, locationID uuid.UUID, date time.Time) ([]location.CalendarBlock, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, location_id, date, kind, start_minute, end_minute, reason
		FROM etc_location_calendar_blocks
		WHERE location_id = $1 AND date = $2::date
		ORDER BY start_minute`,
		locationID.String(), date,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list calendar blocks")
	}
	defer rows.Close()

	var results []location.CalendarBlock
	for rows.Next() {
		var m models.LocationCalendarBlock
		if err := rows.Scan(
			&m.ID, &m.LocationID, &m.Date, &m.Kind, &m.StartMinute, &m.EndMinute, &m.Reason,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainCalendarBlock(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetSlotConfig returns the zero value when the location has no override row;
// callers fall back to the workflow defaults.
func (r *LocationRepository) GetSlotConfig(ctx context.Context, locationID uuid.UUID) (location.SlotConfig, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return location.SlotConfig{}, err
	}
	var m models.LocationSlotConfig
	err = tx.QueryRow(ctx, `
		SELECT location_id, service_duration_minutes, granularity_minutes
		FROM etc_location_slot_configs
		WHERE location_id = $1`,
		locationID.String(),
	).Scan(&m.LocationID, &m.ServiceDurationMinutes, &m.GranularityMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.SlotConfig{}, nil
		}
		return location.SlotConfig{}, errors.Wrap(err, "get slot config")
	}
	return location.SlotConfig{
		ServiceDurationMinutes: m.ServiceDurationMinutes,
		GranularityMinutes:     m.GranularityMinutes,
	}, nil
}
