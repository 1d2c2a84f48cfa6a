package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

const paymentAttemptColumns = `
	id, request_id, attempt_no, method, amount, status, reference,
	declared_at, verified_by, verified_at, rejection_reason, created_at, updated_at`

type PaymentAttemptRepository struct{}

func NewPaymentAttemptRepository() paymentattempt.Repository {
	return &PaymentAttemptRepository{}
}

func (r *PaymentAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (paymentattempt.PaymentAttempt, error) {
	return r.getOne(ctx, `WHERE id = $1`, id.String())
}

func (r *PaymentAttemptRepository) GetByRequestAndNo(ctx context.Context, requestID uuid.UUID, attemptNo int) (paymentattempt.PaymentAttempt, error) {
	return r.getOne(ctx, `WHERE request_id = $1 AND attempt_no = $2`, requestID.String(), attemptNo)
}

func (r *PaymentAttemptRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]paymentattempt.PaymentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT`+paymentAttemptColumns+` FROM etc_payment_attempts WHERE request_id = $1 ORDER BY attempt_no`,
		requestID.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list payment attempts")
	}
	defer rows.Close()

	var results []paymentattempt.PaymentAttempt
	for rows.Next() {
		attempt, err := scanPaymentAttempt(rows)
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

func (r *PaymentAttemptRepository) MaxAttemptNo(ctx context.Context, requestID uuid.UUID) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var max int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_no), 0) FROM etc_payment_attempts WHERE request_id = $1`,
		requestID.String(),
	).Scan(&max); err != nil {
		return 0, errors.Wrap(err, "max payment attempt no")
	}
	return max, nil
}

func (r *PaymentAttemptRepository) CountByStatus(ctx context.Context, requestID uuid.UUID, status paymentattempt.Status) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM etc_payment_attempts WHERE request_id = $1 AND status = $2`,
		requestID.String(), string(status),
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count payment attempts")
	}
	return count, nil
}

func (r *PaymentAttemptRepository) Create(ctx context.Context, attempt paymentattempt.PaymentAttempt) (paymentattempt.PaymentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}

	row := toDBPaymentAttempt(attempt)
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO etc_payment_attempts (request_id, attempt_no, method, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		row.RequestID, row.AttemptNo, row.Method, row.Amount, row.Status,
	).Scan(&id)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, errors.Wrap(err, "insert payment attempt")
	}
	return r.GetByID(ctx, parseUUID(id))
}

func (r *PaymentAttemptRepository) Update(ctx context.Context, attempt paymentattempt.PaymentAttempt) (paymentattempt.PaymentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}

	row := toDBPaymentAttempt(attempt)
	tag, err := tx.Exec(ctx, `
		UPDATE etc_payment_attempts SET
			status = $1, reference = $2, declared_at = $3,
			verified_by = $4, verified_at = $5, rejection_reason = $6,
			updated_at = now()
		WHERE id = $7`,
		row.Status, row.Reference, row.DeclaredAt,
		row.VerifiedBy, row.VerifiedAt, row.RejectionReason,
		row.ID,
	)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, errors.Wrap(err, "update payment attempt")
	}
	if tag.RowsAffected() == 0 {
		return paymentattempt.PaymentAttempt{}, paymentattempt.ErrNotFound
	}
	return r.GetByID(ctx, attempt.ID())
}

func (r *PaymentAttemptRepository) getOne(ctx context.Context, clause string, args ...any) (paymentattempt.PaymentAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}
	row := tx.QueryRow(ctx, `SELECT`+paymentAttemptColumns+` FROM etc_payment_attempts `+clause, args...)
	attempt, err := scanPaymentAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paymentattempt.PaymentAttempt{}, paymentattempt.ErrNotFound
		}
		return paymentattempt.PaymentAttempt{}, errors.Wrap(err, "get payment attempt")
	}
	return attempt, nil
}

func scanPaymentAttempt(row pgx.Row) (paymentattempt.PaymentAttempt, error) {
	var m models.PaymentAttempt
	if err := row.Scan(
		&m.ID, &m.RequestID, &m.AttemptNo, &m.Method, &m.Amount, &m.Status, &m.Reference,
		&m.DeclaredAt, &m.VerifiedBy, &m.VerifiedAt, &m.RejectionReason,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}
	return toDomainPaymentAttempt(&m)
}
