package requeststatus

import (
	"context"

	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrNotFound = serrors.NewError("ETC_STATUS_NOT_FOUND", "request status does not exist", "")
	ErrInactive = serrors.NewError("ETC_STATUS_INACTIVE", "request status is deactivated", "")
	// ErrMissingRequired signals a registry row the workflow depends on is
	// absent. This is server-side misconfiguration, never a user error.
	ErrMissingRequired = serrors.NewError("ETC_STATUS_MISCONFIGURED", "required request status missing from registry", "run the status seed")
)

type Repository interface {
	GetAll(ctx context.Context) ([]RequestStatus, error)
	GetByCode(ctx context.Context, code string) (RequestStatus, error)
	Create(ctx context.Context, status RequestStatus) error
	Update(ctx context.Context, status RequestStatus) error
}
