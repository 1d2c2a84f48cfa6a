package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/eventbus"
	"github.com/iota-uz/etc-portal/pkg/metrics"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrPaymentNotExpected = serrors.NewError(
		"ETC_PAYMENT_NOT_EXPECTED",
		"request is not awaiting payment",
		"",
	)
	ErrRejectionReasonRequired = serrors.NewError(
		"ETC_PAYMENT_REASON_REQUIRED",
		"a rejection reason is required",
		"",
	)
	ErrInvalidAmount = serrors.NewError(
		"ETC_PAYMENT_INVALID_AMOUNT",
		"declared amount must be positive",
		"",
	)
	ErrSimulationDisabled = serrors.NewError(
		"ETC_SIMULATION_DISABLED",
		"payment simulation is disabled",
		"",
	)
)

type PaymentServiceConfig struct {
	// RejectionFlagThreshold is the rejected-attempt count at which the
	// request gets flagged for manual intervention. Soft threshold, never a
	// block.
	RejectionFlagThreshold int
	// AllowSimulation gates the demo-only auto-completion path. Always false
	// in production.
	AllowSimulation bool
}

// PaymentService manages the ordered payment-attempt history of a request and
// keeps exactly one attempt active at a time.
type PaymentService struct {
	requests   request.Repository
	attempts   paymentattempt.Repository
	lifecycle  *LifecycleService
	audit      auditlog.Repository
	comments   comment.Repository
	publisher  eventbus.EventBus
	validators map[paymentattempt.Method]ReferenceValidator
	cfg        PaymentServiceConfig
}

func NewPaymentService(
	requests request.Repository,
	attempts paymentattempt.Repository,
	lifecycle *LifecycleService,
	audit auditlog.Repository,
	comments comment.Repository,
	publisher eventbus.EventBus,
	cfg PaymentServiceConfig,
) *PaymentService {
	if cfg.RejectionFlagThreshold <= 0 {
		cfg.RejectionFlagThreshold = 5
	}
	return &PaymentService{
		requests:   requests,
		attempts:   attempts,
		lifecycle:  lifecycle,
		audit:      audit,
		comments:   comments,
		publisher:  publisher,
		validators: DefaultReferenceValidators(),
		cfg:        cfg,
	}
}

func (s *PaymentService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]paymentattempt.PaymentAttempt, error) {
	return s.attempts.ListByRequest(ctx, requestID)
}

// Active returns the attempt the request's active pointer references, or
// ErrNoActive.
func (s *PaymentService) Active(ctx context.Context, requestID uuid.UUID) (paymentattempt.PaymentAttempt, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}
	activeID := req.ActivePaymentAttemptID()
	if activeID == nil {
		return paymentattempt.PaymentAttempt{}, paymentattempt.ErrNoActive
	}
	return s.attempts.GetByID(ctx, *activeID)
}

// Create opens attempt number max+1 in PENDING and repoints the request's
// active pointer at it. A prior non-terminal attempt is deliberately allowed
// to be displaced so the customer can switch methods before declaring.
func (s *PaymentService) Create(
	ctx context.Context,
	requestID uuid.UUID,
	method paymentattempt.Method,
	amount decimal.Decimal,
) (paymentattempt.PaymentAttempt, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return paymentattempt.PaymentAttempt{}, ErrInvalidAmount
	}

	var created paymentattempt.PaymentAttempt
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.StatusCode() != requeststatus.CodePaymentPending {
			return ErrPaymentNotExpected.WithMessage(
				"request " + req.Number() + " is in " + req.StatusCode())
		}

		maxNo, err := s.attempts.MaxAttemptNo(txCtx, requestID)
		if err != nil {
			return err
		}

		created, err = s.attempts.Create(txCtx, paymentattempt.New(requestID, maxNo+1, method, amount))
		if err != nil {
			return err
		}

		id := created.ID()
		if _, err := s.requests.Update(txCtx, req.WithActivePaymentAttemptID(&id)); err != nil {
			return err
		}

		return s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionPaymentStatusChanged,
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": created.AttemptNo(),
				"method":    string(method),
				"status":    string(paymentattempt.StatusPending),
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		})
	})
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}
	return created, nil
}

// Declare submits the reference for review and advances the request to
// PAYMENT_REVIEW.
func (s *PaymentService) Declare(
	ctx context.Context,
	requestID uuid.UUID,
	attemptNo int,
	reference string,
) (paymentattempt.PaymentAttempt, error) {
	var declared paymentattempt.PaymentAttempt
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}

		attempt, err := s.attempts.GetByRequestAndNo(txCtx, requestID, attemptNo)
		if err != nil {
			return err
		}
		if attempt.Status() != paymentattempt.StatusPending {
			return paymentattempt.ErrInvalidState.WithMessage(
				fmt.Sprintf("attempt %d is %s, expected PENDING", attemptNo, attempt.Status()))
		}

		validate, ok := s.validators[attempt.Method()]
		if !ok {
			validate = validateNonEmptyReference
		}
		if err := validate(reference); err != nil {
			return err
		}

		declared, err = s.attempts.Update(txCtx, attempt.Declared(reference, now()))
		if err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionPaymentStatusChanged,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(paymentattempt.StatusPending)}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": attempt.AttemptNo(),
				"status":    string(paymentattempt.StatusPendingReview),
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		}); err != nil {
			return err
		}

		_, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePaymentReview, TransitionOptions{
			Source: SourceSystem,
		})
		return err
	})
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}
	return declared, nil
}

// CancelActive withdraws the active attempt. Only a PENDING attempt may be
// cancelled; a declared one is under review and must not silently vanish.
func (s *PaymentService) CancelActive(ctx context.Context, requestID uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		activeID := req.ActivePaymentAttemptID()
		if activeID == nil {
			return paymentattempt.ErrNoActive
		}
		attempt, err := s.attempts.GetByID(txCtx, *activeID)
		if err != nil {
			return err
		}
		if attempt.Status() != paymentattempt.StatusPending {
			return paymentattempt.ErrInvalidState.WithMessage(
				"active attempt is " + string(attempt.Status()) + ", only PENDING can be cancelled")
		}

		if _, err := s.attempts.Update(txCtx, attempt.Cancelled()); err != nil {
			return err
		}
		if _, err := s.requests.Update(txCtx, req.WithActivePaymentAttemptID(nil)); err != nil {
			return err
		}

		return s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionPaymentStatusChanged,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(paymentattempt.StatusPending)}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": attempt.AttemptNo(),
				"status":    string(paymentattempt.StatusCancelled),
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		})
	})
}

// Approve completes a reviewed attempt and advances the request to
// information review. Requires etc.payment.verify.
func (s *PaymentService) Approve(ctx context.Context, attemptID uuid.UUID, notes string) error {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return ErrUnauthorized
	}

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		attempt, err := s.attempts.GetByID(txCtx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status() != paymentattempt.StatusPendingReview {
			return paymentattempt.ErrInvalidState.WithMessage(
				"attempt is " + string(attempt.Status()) + ", expected PENDING_REVIEW")
		}

		req, err := s.requests.GetByIDForUpdate(txCtx, attempt.RequestID())
		if err != nil {
			return err
		}

		if _, err := s.attempts.Update(txCtx, attempt.Approved(actorID, now())); err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: req.ID(),
			Action:    auditlog.ActionPaymentStatusChanged,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(paymentattempt.StatusPendingReview)}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": attempt.AttemptNo(),
				"status":    string(paymentattempt.StatusCompleted),
			}),
			ActorID: &actorID,
		}); err != nil {
			return err
		}

		if notes != "" {
			if err := s.comments.Create(txCtx, comment.New(
				req.ID(), notes, comment.VisibilityInternalOnly, &actorID,
			)); err != nil {
				return err
			}
		}

		// The lifecycle edge carries the etc.payment.verify check.
		_, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePendingInformationReview, TransitionOptions{
			Source: SourceAdmin,
		})
		return err
	})
	if err != nil {
		return err
	}

	metrics.PaymentVerdicts.WithLabelValues("approved").Inc()
	return nil
}

// Reject refuses a reviewed attempt with a mandatory reason and reverts the
// request to PAYMENT_PENDING so the customer can try again.
func (s *PaymentService) Reject(ctx context.Context, attemptID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return ErrUnauthorized
	}

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		attempt, err := s.attempts.GetByID(txCtx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status() != paymentattempt.StatusPendingReview {
			return paymentattempt.ErrInvalidState.WithMessage(
				"attempt is " + string(attempt.Status()) + ", expected PENDING_REVIEW")
		}

		req, err := s.requests.GetByIDForUpdate(txCtx, attempt.RequestID())
		if err != nil {
			return err
		}

		if _, err := s.attempts.Update(txCtx, attempt.Rejected(actorID, reason, now())); err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: req.ID(),
			Action:    auditlog.ActionPaymentStatusChanged,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(paymentattempt.StatusPendingReview)}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": attempt.AttemptNo(),
				"status":    string(paymentattempt.StatusRejected),
				"reason":    reason,
			}),
			ActorID: &actorID,
		}); err != nil {
			return err
		}

		if err := s.comments.Create(txCtx, comment.New(
			req.ID(), "Payment rejected: "+reason, comment.VisibilityInternalOnly, &actorID,
		)); err != nil {
			return err
		}

		rejected, err := s.attempts.CountByStatus(txCtx, req.ID(), paymentattempt.StatusRejected)
		if err != nil {
			return err
		}
		if rejected >= s.cfg.RejectionFlagThreshold {
			if err := s.comments.Create(txCtx, comment.New(
				req.ID(),
				fmt.Sprintf("Request has %d rejected payment attempts and needs manual intervention", rejected),
				comment.VisibilityInternalOnly,
				nil,
			)); err != nil {
				return err
			}
		}

		_, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePaymentPending, TransitionOptions{
			Source: SourceAdmin,
		})
		return err
	})
	if err != nil {
		return err
	}

	metrics.PaymentVerdicts.WithLabelValues("rejected").Inc()
	return nil
}

// SimulateSuccess auto-completes the active attempt. Demo/test environments
// only; production configuration never enables it.
func (s *PaymentService) SimulateSuccess(ctx context.Context, requestID uuid.UUID) error {
	if !s.cfg.AllowSimulation {
		return ErrSimulationDisabled
	}

	return composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		activeID := req.ActivePaymentAttemptID()
		if activeID == nil {
			return paymentattempt.ErrNoActive
		}
		attempt, err := s.attempts.GetByID(txCtx, *activeID)
		if err != nil {
			return err
		}
		if attempt.Status().IsTerminal() {
			return paymentattempt.ErrInvalidState.WithMessage(
				"active attempt already " + string(attempt.Status()))
		}

		if _, err := s.attempts.Update(txCtx, attempt.AutoCompleted(now())); err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: req.ID(),
			Action:    auditlog.ActionPaymentStatusChanged,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(attempt.Status())}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": attempt.AttemptNo(),
				"status":    string(paymentattempt.StatusCompleted),
				"simulated": true,
			}),
		}); err != nil {
			return err
		}

		target := requeststatus.CodePendingInformationReview
		if req.StatusCode() == requeststatus.CodePaymentPending {
			// Jump through review so the edge table stays the single truth.
			if req, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePaymentReview, TransitionOptions{
				Source: SourceSystem,
			}); err != nil {
				return err
			}
		}
		_, err = s.lifecycle.transitionLocked(txCtx, req, target, TransitionOptions{
			Source: SourceSystem,
		})
		return err
	})
}
