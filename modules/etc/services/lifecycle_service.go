package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/eventbus"
	"github.com/iota-uz/etc-portal/pkg/metrics"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var ErrTransitionNotAllowed = serrors.NewError(
	"ETC_INVALID_TRANSITION",
	"status transition is not allowed from the request's current status",
	"",
)

// TransitionSource distinguishes who initiated a transition. Internal edges
// are reachable only from SourceSystem.
type TransitionSource string

const (
	SourceAdmin    TransitionSource = "admin"
	SourceCustomer TransitionSource = "customer"
	SourceSystem   TransitionSource = "system"
)

type TransitionOptions struct {
	Comment  string
	Metadata map[string]any
	Source   TransitionSource
}

// LifecycleService is the single authority for changing a request's status.
// Every move is validated against the transition table, permission-checked,
// and leaves an audit trail, all inside one transaction.
type LifecycleService struct {
	requests  request.Repository
	statuses  requeststatus.Repository
	audit     auditlog.Repository
	comments  comment.Repository
	publisher eventbus.EventBus
}

func NewLifecycleService(
	requests request.Repository,
	statuses requeststatus.Repository,
	audit auditlog.Repository,
	comments comment.Repository,
	publisher eventbus.EventBus,
) *LifecycleService {
	return &LifecycleService{
		requests:  requests,
		statuses:  statuses,
		audit:     audit,
		comments:  comments,
		publisher: publisher,
	}
}

func (s *LifecycleService) GetByID(ctx context.Context, id uuid.UUID) (request.Request, error) {
	return s.requests.GetByID(ctx, id)
}

// AvailableTargets lists the status codes an admin may move the request to
// from its current status. Internal edges are excluded.
func (s *LifecycleService) AvailableTargets(current string) []string {
	return TargetsFrom(current, false)
}

// Transition moves the request to targetCode. Admin- and customer-originated
// entry point; attempt machines use transitionLocked inside their own
// transactions.
func (s *LifecycleService) Transition(
	ctx context.Context,
	requestID uuid.UUID,
	targetCode string,
	opts TransitionOptions,
) (request.Request, error) {
	var updated request.Request
	var fromCode string
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		fromCode = req.StatusCode()
		updated, err = s.transitionLocked(txCtx, req, targetCode, opts)
		return err
	})
	if err != nil {
		return request.Request{}, err
	}

	s.publisher.Publish(&request.StatusChangedEvent{
		RequestID: updated.ID(),
		Number:    updated.Number(),
		From:      fromCode,
		To:        targetCode,
		ActorID:   composables.ActorIDOrNil(ctx),
	})
	return updated, nil
}

// transitionLocked applies a transition to a request whose row the caller has
// already locked. It performs no commit; the surrounding transaction owns
// atomicity.
func (s *LifecycleService) transitionLocked(
	ctx context.Context,
	req request.Request,
	targetCode string,
	opts TransitionOptions,
) (request.Request, error) {
	if opts.Source == "" {
		opts.Source = SourceAdmin
	}

	target, err := s.statuses.GetByCode(ctx, targetCode)
	if err != nil {
		if errors.Is(err, requeststatus.ErrNotFound) && opts.Source == SourceSystem {
			// A workflow-required status missing from the registry is a
			// deployment fault, not bad input.
			return request.Request{}, requeststatus.ErrMissingRequired.WithMessage(
				"status " + targetCode + " missing from registry")
		}
		return request.Request{}, err
	}
	if !target.Active() {
		return request.Request{}, requeststatus.ErrInactive.WithMessage(
			"status " + targetCode + " is deactivated")
	}

	from := req.StatusCode()
	edge, ok := EdgeFor(from, targetCode)
	if !ok {
		return request.Request{}, ErrTransitionNotAllowed.WithMessage(
			"no transition from " + from + " to " + targetCode)
	}
	if edge.Internal && opts.Source != SourceSystem {
		return request.Request{}, ErrTransitionNotAllowed.WithMessage(
			"transition from " + from + " to " + targetCode + " is internal")
	}
	// System-originated moves are machine-driven; the calling service already
	// gated the operation that triggered them.
	if edge.Permission != nil && opts.Source != SourceSystem {
		if err := authorizeETC(ctx, *edge.Permission); err != nil {
			return request.Request{}, err
		}
	}

	updated, err := s.requests.Update(ctx, req.WithStatusCode(targetCode))
	if err != nil {
		return request.Request{}, err
	}

	oldData := map[string]any{"status": from}
	newData := map[string]any{"status": targetCode}
	for k, v := range opts.Metadata {
		newData[k] = v
	}
	if err := s.audit.Create(ctx, &auditlog.Entry{
		RequestID: req.ID(),
		Action:    auditlog.ActionStatusChanged,
		OldData:   auditlog.Snapshot(oldData),
		NewData:   auditlog.Snapshot(newData),
		ActorID:   composables.ActorIDOrNil(ctx),
	}); err != nil {
		return request.Request{}, err
	}

	if opts.Comment != "" {
		visibility := comment.VisibilityInternalOnly
		if targetCode == requeststatus.CodePendingInformationEdit {
			// The customer must see why edits were requested.
			visibility = comment.VisibilityInternalAndCustomer
		}
		if err := s.comments.Create(ctx, comment.New(
			req.ID(), opts.Comment, visibility, composables.ActorIDOrNil(ctx),
		)); err != nil {
			return request.Request{}, err
		}
	}

	metrics.StatusTransitions.WithLabelValues(from, targetCode).Inc()
	return updated, nil
}
