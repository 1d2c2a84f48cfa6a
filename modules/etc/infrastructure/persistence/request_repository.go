package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/repo"
)

const requestColumns = `
	id, number, request_type,
	first_name, last_name, national_id, phone, email, company_name, company_tin,
	plate, vehicle_type_id, location_id, status_code, assigned_to, rfid_value,
	notify_by_sms, notify_by_email, allow_edit,
	installation_completed_at, provisioning_completed_at,
	active_payment_attempt_id, active_appointment_attempt_id,
	version, created_at, updated_at`

type RequestRepository struct{}

func NewRequestRepository() request.Repository {
	return &RequestRepository{}
}

func (r *RequestRepository) GetPaginated(ctx context.Context, params *request.FindParams) ([]request.Request, int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = &request.FindParams{}
	}

	where, args := buildRequestFilters(params)
	base := ` FROM etc_requests WHERE ` + strings.Join(where, " AND ")

	var total int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count requests")
	}

	query := `SELECT` + requestColumns + base + ` ORDER BY created_at DESC ` +
		repo.FormatLimitOffset(params.Limit, params.Offset)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list requests")
	}
	defer rows.Close()

	var results []request.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (request.Request, error) {
	return r.getOne(ctx, `WHERE id = $1`, id.String())
}

func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (request.Request, error) {
	return r.getOne(ctx, `WHERE id = $1 FOR UPDATE`, id.String())
}

func (r *RequestRepository) GetByNumber(ctx context.Context, number string) (request.Request, error) {
	return r.getOne(ctx, `WHERE number = $1`, number)
}

func (r *RequestRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM etc_requests WHERE number = $1)`, number,
	).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check request number")
	}
	return exists, nil
}

func (r *RequestRepository) Create(ctx context.Context, req request.Request) (request.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return request.Request{}, err
	}

	row := toDBRequest(req)
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO etc_requests (
			number, request_type,
			first_name, last_name, national_id, phone, email, company_name, company_tin,
			plate, vehicle_type_id, location_id, status_code,
			notify_by_sms, notify_by_email, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		row.Number, row.RequestType,
		row.FirstName, row.LastName, row.NationalID, row.Phone, row.Email,
		row.CompanyName, row.CompanyTIN,
		row.Plate, row.VehicleTypeID, row.LocationID, row.StatusCode,
		row.NotifyBySMS, row.NotifyByEmail, row.Version,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return request.Request{}, request.ErrNumberTaken
		}
		return request.Request{}, errors.Wrap(err, "insert request")
	}
	return r.GetByID(ctx, parseUUID(id))
}

// Update writes the aggregate guarded by its version. Zero rows affected means
// a concurrent writer won; nothing is written and ErrStaleVersion is returned.
func (r *RequestRepository) Update(ctx context.Context, req request.Request) (request.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return request.Request{}, err
	}

	row := toDBRequest(req)
	tag, err := tx.Exec(ctx, `
		UPDATE etc_requests SET
			first_name = $1, last_name = $2, national_id = $3, phone = $4, email = $5,
			company_name = $6, company_tin = $7, plate = $8, vehicle_type_id = $9,
			location_id = $10, status_code = $11, assigned_to = $12, rfid_value = $13,
			notify_by_sms = $14, notify_by_email = $15, allow_edit = $16,
			installation_completed_at = $17, provisioning_completed_at = $18,
			active_payment_attempt_id = $19, active_appointment_attempt_id = $20,
			version = version + 1, updated_at = now()
		WHERE id = $21 AND version = $22`,
		row.FirstName, row.LastName, row.NationalID, row.Phone, row.Email,
		row.CompanyName, row.CompanyTIN, row.Plate, row.VehicleTypeID,
		row.LocationID, row.StatusCode, row.AssignedTo, row.RFIDValue,
		row.NotifyBySMS, row.NotifyByEmail, row.AllowEdit,
		row.InstallationCompletedAt, row.ProvisioningCompletedAt,
		row.ActivePaymentAttemptID, row.ActiveAppointmentAttemptID,
		row.ID, row.Version,
	)
	if err != nil {
		return request.Request{}, errors.Wrap(err, "update request")
	}
	if tag.RowsAffected() == 0 {
		return request.Request{}, request.ErrStaleVersion
	}
	return r.GetByID(ctx, req.ID())
}

func (r *RequestRepository) getOne(ctx context.Context, clause string, arg any) (request.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return request.Request{}, err
	}
	row := tx.QueryRow(ctx, `SELECT`+requestColumns+` FROM etc_requests `+clause, arg)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return request.Request{}, request.ErrNotFound
		}
		return request.Request{}, errors.Wrap(err, "get request")
	}
	return req, nil
}

func scanRequest(row pgx.Row) (request.Request, error) {
	var m models.Request
	if err := row.Scan(
		&m.ID, &m.Number, &m.RequestType,
		&m.FirstName, &m.LastName, &m.NationalID, &m.Phone, &m.Email,
		&m.CompanyName, &m.CompanyTIN,
		&m.Plate, &m.VehicleTypeID, &m.LocationID, &m.StatusCode,
		&m.AssignedTo, &m.RFIDValue,
		&m.NotifyBySMS, &m.NotifyByEmail, &m.AllowEdit,
		&m.InstallationCompletedAt, &m.ProvisioningCompletedAt,
		&m.ActivePaymentAttemptID, &m.ActiveAppointmentAttemptID,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return request.Request{}, err
	}
	return toDomainRequest(&m), nil
}

func buildRequestFilters(params *request.FindParams) ([]string, []any) {
	where := []string{"1 = 1"}
	var args []any
	idx := 1

	if len(params.StatusCodes) > 0 {
		where = append(where, fmt.Sprintf("status_code = ANY($%d)", idx))
		args = append(args, params.StatusCodes)
		idx++
	}
	if params.AssignedTo != nil {
		where = append(where, fmt.Sprintf("assigned_to = $%d", idx))
		args = append(args, params.AssignedTo.String())
		idx++
	}
	if params.LocationID != nil {
		where = append(where, fmt.Sprintf("location_id = $%d", idx))
		args = append(args, params.LocationID.String())
		idx++
	}
	if q := strings.TrimSpace(params.Q); q != "" {
		where = append(where, fmt.Sprintf(
			"(number ILIKE $%d OR plate ILIKE $%d OR phone ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d OR company_name ILIKE $%d)",
			idx, idx, idx, idx, idx, idx))
		args = append(args, "%"+q+"%")
		idx++
	}
	return where, args
}
