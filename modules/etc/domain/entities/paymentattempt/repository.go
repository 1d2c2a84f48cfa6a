package paymentattempt

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrNotFound = serrors.NewError("ETC_PAYMENT_ATTEMPT_NOT_FOUND", "payment attempt does not exist", "")
	// ErrInvalidState guards the one-way attempt state machine: approve and
	// reject require PENDING_REVIEW, cancel requires PENDING.
	ErrInvalidState = serrors.NewError("ETC_PAYMENT_ATTEMPT_INVALID_STATE", "payment attempt is not in the required state", "")
	ErrNoActive     = serrors.NewError("ETC_PAYMENT_ATTEMPT_NO_ACTIVE", "request has no active payment attempt", "")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (PaymentAttempt, error)
	GetByRequestAndNo(ctx context.Context, requestID uuid.UUID, attemptNo int) (PaymentAttempt, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]PaymentAttempt, error)
	// MaxAttemptNo returns 0 when the request has no attempts yet. Callers
	// hold the request row lock while computing the next number.
	MaxAttemptNo(ctx context.Context, requestID uuid.UUID) (int, error)
	CountByStatus(ctx context.Context, requestID uuid.UUID, status Status) (int, error)
	Create(ctx context.Context, attempt PaymentAttempt) (PaymentAttempt, error)
	Update(ctx context.Context, attempt PaymentAttempt) (PaymentAttempt, error)
}
