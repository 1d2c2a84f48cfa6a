package request

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrNotFound    = serrors.NewError("ETC_REQUEST_NOT_FOUND", "registration request does not exist", "")
	ErrNumberTaken = serrors.NewError("ETC_REQUEST_NUMBER_TAKEN", "request number already in use", "")
	// ErrStaleVersion means another writer updated the request between our read
	// and write. The caller re-reads and retries or surfaces a conflict.
	ErrStaleVersion = serrors.NewError("ETC_REQUEST_STALE", "request was modified concurrently", "retry the operation")
)

type FindParams struct {
	StatusCodes []string
	AssignedTo  *uuid.UUID
	LocationID  *uuid.UUID
	Q           string
	Limit       int
	Offset      int
}

type Repository interface {
	GetPaginated(ctx context.Context, params *FindParams) ([]Request, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (Request, error)
	// GetByIDForUpdate locks the request row for the remainder of the
	// transaction. Attempt machines take this lock before reading attempt
	// history so "one active attempt" cannot be raced.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (Request, error)
	GetByNumber(ctx context.Context, number string) (Request, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, r Request) (Request, error)
	// Update persists the aggregate guarded by its version; a lost race
	// returns ErrStaleVersion and writes nothing.
	Update(ctx context.Context, r Request) (Request, error)
}
