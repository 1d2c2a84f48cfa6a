package services

import (
	"context"

	"github.com/iota-uz/etc-portal/modules/etc/permissions"
	"github.com/iota-uz/etc-portal/pkg/authz"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var ErrUnauthorized = serrors.NewError("ETC_UNAUTHORIZED", "no authenticated actor", "")

// authorizeETCFn is a package variable so tests can stub the permission oracle.
var authorizeETCFn = defaultAuthorizeETC

func defaultAuthorizeETC(ctx context.Context, node permissions.Node) error {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return ErrUnauthorized
	}
	return authz.Authorize(ctx, authz.NewRequest(
		authz.SubjectForUser(actorID),
		node.Object,
		node.Action,
	))
}

func authorizeETC(ctx context.Context, node permissions.Node) error {
	return authorizeETCFn(ctx, node)
}
