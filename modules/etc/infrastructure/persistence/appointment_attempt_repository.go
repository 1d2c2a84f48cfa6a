package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

const appointmentAttemptColumns = `
	id, request_id, attempt_no, location_id,
	scheduled_start_at, scheduled_end_at, mode, status, created_at, updated_at`

type AppointmentAttemptRepository struct{}

func NewAppointmentAttemptRepository() appointmentattempt.Repository {
	return &AppointmentAttemptRepository{}
}

func (r *AppointmentAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (appointmentattempt.AppointmentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}
	row := tx.QueryRow(ctx,
		`SELECT`+appointmentAttemptColumns+` FROM etc_appointment_attempts WHERE id = $1`,
		id.String(),
	)
	attempt, err := scanAppointmentAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointmentattempt.AppointmentAttempt{}, appointmentattempt.ErrNotFound
		}
		return appointmentattempt.AppointmentAttempt{}, errors.Wrap(err, "get appointment attempt")
	}
	return attempt, nil
}

func (r *AppointmentAttemptRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]appointmentattempt.AppointmentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT`+appointmentAttemptColumns+` FROM etc_appointment_attempts WHERE request_id = $1 ORDER BY attempt_no`,
		requestID.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list appointment attempts")
	}
	defer rows.Close()

	var results []appointmentattempt.AppointmentAttempt
	for rows.Next() {
		attempt, err := scanAppointmentAttempt(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AppointmentAttemptRepository) MaxAttemptNo(ctx context.Context, requestID uuid.UUID) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var max int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_no), 0) FROM etc_appointment_attempts WHERE request_id = $1`,
		requestID.String(),
	).Scan(&max); err != nil {
		return 0, errors.Wrap(err, "max appointment attempt no")
	}
	return max, nil
}

func (r *AppointmentAttemptRepository) CountAtSlot(ctx context.Context, locationID uuid.UUID, startAt time.Time) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM etc_appointment_attempts
		WHERE location_id = $1 AND scheduled_start_at = $2 AND status IN ('CONFIRMED', 'PENDING')`,
		locationID.String(), startAt,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count attempts at slot")
	}
	return count, nil
}

func (r *AppointmentAttemptRepository) Create(ctx context.Context, attempt appointmentattempt.AppointmentAttempt) (appointmentattempt.AppointmentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}

	row := toDBAppointmentAttempt(attempt)
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO etc_appointment_attempts
			(request_id, attempt_no, location_id, scheduled_start_at, scheduled_end_at, mode, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		row.RequestID, row.AttemptNo, row.LocationID,
		row.ScheduledStartAt, row.ScheduledEndAt, row.Mode, row.Status,
	).Scan(&id)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, errors.Wrap(err, "insert appointment attempt")
	}
	return r.GetByID(ctx, parseUUID(id))
}

func (r *AppointmentAttemptRepository) Update(ctx context.Context, attempt appointmentattempt.AppointmentAttempt) (appointmentattempt.AppointmentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}

	row := toDBAppointmentAttempt(attempt)
	tag, err := tx.Exec(ctx,
		`UPDATE etc_appointment_attempts SET status = $1, updated_at = now() WHERE id = $2`,
		row.Status, row.ID,
	)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, errors.Wrap(err, "update appointment attempt")
	}
	if tag.RowsAffected() == 0 {
		return appointmentattempt.AppointmentAttempt{}, appointmentattempt.ErrNotFound
	}
	return r.GetByID(ctx, attempt.ID())
}

func scanAppointmentAttempt(row pgx.Row) (appointmentattempt.AppointmentAttempt, error) {
	var m models.AppointmentAttempt
	if err := row.Scan(
		&m.ID, &m.RequestID, &m.AttemptNo, &m.LocationID,
		&m.ScheduledStartAt, &m.ScheduledEndAt, &m.Mode, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}
	return toDomainAppointmentAttempt(&m), nil
}
