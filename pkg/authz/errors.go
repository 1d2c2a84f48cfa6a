package authz

import (
	"errors"

	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrForbidden     = serrors.NewError("AUTHZ_FORBIDDEN", "actor lacks the required permission", "")
	ErrNotConfigured = serrors.NewError("AUTHZ_NOT_CONFIGURED", "authorization service is not configured", "call authz.Setup at startup")
)

func forbiddenError(req Request) error {
	return ErrForbidden.WithMessage("permission " + req.Node() + " denied for " + req.Subject)
}

// IsForbidden reports whether err is an authorization deny.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
