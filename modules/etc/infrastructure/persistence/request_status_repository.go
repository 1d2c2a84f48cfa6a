package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

const requestStatusColumns = `code, label, category, order_index, is_terminal, is_editable, active`

type RequestStatusRepository struct{}

func NewRequestStatusRepository() requeststatus.Repository {
	return &RequestStatusRepository{}
}

func (r *RequestStatusRepository) GetAll(ctx context.Context) ([]requeststatus.RequestStatus, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+requestStatusColumns+` FROM etc_request_statuses ORDER BY order_index`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list request statuses")
	}
	defer rows.Close()

	var results []requeststatus.RequestStatus
	for rows.Next() {
		status, err := scanRequestStatus(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *RequestStatusRepository) GetByCode(ctx context.Context, code string) (requeststatus.RequestStatus, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return requeststatus.RequestStatus{}, err
	}
	row := tx.QueryRow(ctx,
		`SELECT `+requestStatusColumns+` FROM etc_request_statuses WHERE code = $1`, code,
	)
	status, err := scanRequestStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return requeststatus.RequestStatus{}, requeststatus.ErrNotFound
		}
		return requeststatus.RequestStatus{}, errors.Wrap(err, "get request status")
	}
	return status, nil
}

func (r *RequestStatusRepository) Create(ctx context.Context, status requeststatus.RequestStatus) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row := toDBRequestStatus(status)
	_, err = tx.Exec(ctx, `
		INSERT INTO etc_request_statuses (code, label, category, order_index, is_terminal, is_editable, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.Code, row.Label, row.Category, row.OrderIndex, row.IsTerminal, row.IsEditable, row.Active,
	)
	if err != nil {
		return errors.Wrap(err, "insert request status")
	}
	return nil
}

func (r *RequestStatusRepository) Update(ctx context.Context, status requeststatus.RequestStatus) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row := toDBRequestStatus(status)
	tag, err := tx.Exec(ctx, `
		UPDATE etc_request_statuses SET
			label = $1, category = $2, order_index = $3,
			is_terminal = $4, is_editable = $5, active = $6
		WHERE code = $7`,
		row.Label, row.Category, row.OrderIndex,
		row.IsTerminal, row.IsEditable, row.Active, row.Code,
	)
	if err != nil {
		return errors.Wrap(err, "update request status")
	}
	if tag.RowsAffected() == 0 {
		return requeststatus.ErrNotFound
	}
	return nil
}

func scanRequestStatus(row pgx.Row) (requeststatus.RequestStatus, error) {
	var m models.RequestStatus
	if err := row.Scan(
		&m.Code, &m.Label, &m.Category, &m.OrderIndex,
		&m.IsTerminal, &m.IsEditable, &m.Active,
	); err != nil {
		return requeststatus.RequestStatus{}, err
	}
	return toDomainRequestStatus(&m), nil
}
