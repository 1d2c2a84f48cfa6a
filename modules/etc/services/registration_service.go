package services

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/permissions"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/eventbus"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var (
	ErrValidation     = serrors.NewError("ETC_VALIDATION", "request payload failed validation", "")
	ErrEditNotAllowed = serrors.NewError(
		"ETC_EDIT_NOT_ALLOWED",
		"request is not open for customer edits",
		"",
	)
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Next actions the public status endpoint derives for the customer.
const (
	NextActionPaymentRequired  = "PAYMENT_REQUIRED"
	NextActionWaitingForReview = "WAITING_FOR_REVIEW"
	NextActionWaiting          = "WAITING"
)

// numberAttempts bounds the generate-check-retry loop for request numbers.
const numberAttempts = 5

// RequestView is the public read model: the aggregate plus its resolved status
// row, active payment snapshot and the customer's derived next step.
type RequestView struct {
	Request       request.Request
	Status        requeststatus.RequestStatus
	ActivePayment *paymentattempt.PaymentAttempt
	NextAction    string
}

type RegistrationConfig struct {
	// PaymentRequired controls the entry status of new submissions. When false
	// (fee-exempt deployments) requests enter at SUBMITTED and move straight to
	// information review.
	PaymentRequired bool
}

// RegistrationService owns submission and the request-level admin operations
// that are not status-machine moves in themselves.
type RegistrationService struct {
	requests  request.Repository
	statuses  requeststatus.Repository
	payments  paymentattempt.Repository
	lifecycle *LifecycleService
	audit     auditlog.Repository
	comments  comment.Repository
	publisher eventbus.EventBus
	notifier  Notifier
	cfg       RegistrationConfig
}

func NewRegistrationService(
	requests request.Repository,
	statuses requeststatus.Repository,
	payments paymentattempt.Repository,
	lifecycle *LifecycleService,
	audit auditlog.Repository,
	comments comment.Repository,
	publisher eventbus.EventBus,
	notifier Notifier,
	cfg RegistrationConfig,
) *RegistrationService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &RegistrationService{
		requests:  requests,
		statuses:  statuses,
		payments:  payments,
		lifecycle: lifecycle,
		audit:     audit,
		comments:  comments,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Submit accepts a public registration and returns the persisted request.
func (s *RegistrationService) Submit(ctx context.Context, dto *request.CreateDTO) (request.Request, error) {
	dto.Normalize()
	if err := validate.Struct(dto); err != nil {
		return request.Request{}, ErrValidation.WithMessage(err.Error())
	}

	entryCode := requeststatus.CodePaymentPending
	if !s.cfg.PaymentRequired {
		entryCode = requeststatus.CodeSubmitted
	}

	var created request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		entry, err := s.statuses.GetByCode(txCtx, entryCode)
		if err != nil {
			return requeststatus.ErrMissingRequired.WithMessage(
				"entry status " + entryCode + " missing from registry")
		}
		if !entry.Active() {
			return requeststatus.ErrMissingRequired.WithMessage(
				"entry status " + entryCode + " is deactivated")
		}

		number, err := s.uniqueNumber(txCtx)
		if err != nil {
			return err
		}

		created, err = s.requests.Create(txCtx, request.New(
			number,
			request.Type(dto.RequestType),
			dto.ToApplicant(),
			request.Vehicle{Plate: dto.Plate, VehicleTypeID: dto.VehicleTypeID},
			dto.LocationID,
			entryCode,
			dto.NotifyBySMS,
			dto.NotifyByEmail,
		))
		if err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: created.ID(),
			Action:    auditlog.ActionRequestCreated,
			NewData: auditlog.Snapshot(map[string]any{
				"number": created.Number(),
				"type":   string(created.Type()),
				"status": entryCode,
			}),
		}); err != nil {
			return err
		}

		if entryCode == requeststatus.CodeSubmitted {
			created, err = s.lifecycle.transitionLocked(txCtx, created, requeststatus.CodePendingInformationReview, TransitionOptions{
				Source: SourceSystem,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return request.Request{}, err
	}

	s.publisher.Publish(&request.CreatedEvent{
		RequestID: created.ID(),
		Number:    created.Number(),
		Status:    created.StatusCode(),
	})
	if created.NotifyBySMS() {
		notifyBestEffort(ctx, "sms", func() error {
			return s.notifier.RequestSubmitted(ctx, created)
		})
	}
	return created, nil
}

// GetByNumber resolves the public status view for a request number.
func (s *RegistrationService) GetByNumber(ctx context.Context, number string) (RequestView, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !request.ValidNumber(number) {
		return RequestView{}, request.ErrNotFound.WithMessage("malformed request number")
	}

	req, err := s.requests.GetByNumber(ctx, number)
	if err != nil {
		return RequestView{}, err
	}
	status, err := s.statuses.GetByCode(ctx, req.StatusCode())
	if err != nil {
		return RequestView{}, err
	}

	view := RequestView{Request: req, Status: status, NextAction: nextAction(req.StatusCode())}
	if id := req.ActivePaymentAttemptID(); id != nil {
		attempt, err := s.payments.GetByID(ctx, *id)
		if err != nil {
			return RequestView{}, err
		}
		view.ActivePayment = &attempt
	}
	return view, nil
}

// List returns requests for the admin console. Requires etc.requests.view.
func (s *RegistrationService) List(ctx context.Context, params *request.FindParams) ([]request.Request, int64, error) {
	if err := authorizeETC(ctx, permissions.RequestsView); err != nil {
		return nil, 0, err
	}
	return s.requests.GetPaginated(ctx, params)
}

// Update applies customer edits. Only allowed while the request sits in
// PENDING_INFORMATION_EDIT with the edit flag raised.
func (s *RegistrationService) Update(ctx context.Context, requestID uuid.UUID, dto *request.UpdateDTO) (request.Request, error) {
	if err := validate.Struct(dto); err != nil {
		return request.Request{}, ErrValidation.WithMessage(err.Error())
	}

	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if !req.AllowEdit() || req.StatusCode() != requeststatus.CodePendingInformationEdit {
			return ErrEditNotAllowed
		}

		applicant := req.Applicant()
		vehicle := req.Vehicle()
		old := map[string]any{
			"firstName": applicant.FirstName,
			"lastName":  applicant.LastName,
			"phone":     applicant.Phone,
			"email":     applicant.Email,
			"plate":     vehicle.Plate,
		}

		if v := strings.TrimSpace(dto.FirstName); v != "" {
			applicant.FirstName = v
		}
		if v := strings.TrimSpace(dto.LastName); v != "" {
			applicant.LastName = v
		}
		if v := strings.TrimSpace(dto.Phone); v != "" {
			applicant.Phone = v
		}
		if v := strings.TrimSpace(dto.Email); v != "" {
			applicant.Email = v
		}
		if v := strings.ToUpper(strings.TrimSpace(dto.Plate)); v != "" {
			vehicle.Plate = v
		}

		updated, err = s.requests.Update(txCtx, req.WithApplicant(applicant).WithVehicle(vehicle))
		if err != nil {
			return err
		}

		return s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionRequestUpdated,
			OldData:   auditlog.Snapshot(old),
			NewData: auditlog.Snapshot(map[string]any{
				"firstName": applicant.FirstName,
				"lastName":  applicant.LastName,
				"phone":     applicant.Phone,
				"email":     applicant.Email,
				"plate":     vehicle.Plate,
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		})
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// Resubmit sends an edited request back to review and lowers the edit flag.
func (s *RegistrationService) Resubmit(ctx context.Context, requestID uuid.UUID) (request.Request, error) {
	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.StatusCode() != requeststatus.CodePendingInformationEdit {
			return ErrEditNotAllowed.WithMessage(
				"request " + req.Number() + " is in " + req.StatusCode())
		}

		req, err = s.requests.Update(txCtx, req.WithAllowEdit(false))
		if err != nil {
			return err
		}

		updated, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePendingInformationReview, TransitionOptions{
			Source: SourceSystem,
		})
		return err
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// RequestEdits opens the request for customer edits and moves it to
// PENDING_INFORMATION_EDIT with a customer-visible comment explaining why.
func (s *RegistrationService) RequestEdits(ctx context.Context, requestID uuid.UUID, reason string) (request.Request, error) {
	if reason == "" {
		return request.Request{}, ErrValidation.WithMessage("an edit reason is required")
	}

	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		req, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePendingInformationEdit, TransitionOptions{
			Comment: reason,
		})
		if err != nil {
			return err
		}
		updated, err = s.requests.Update(txCtx, req.WithAllowEdit(true))
		return err
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// Reject closes the request. A completed payment means money changed hands, so
// the request parks in PENDING_REFUND instead of going straight to REJECTED.
func (s *RegistrationService) Reject(ctx context.Context, requestID uuid.UUID, reason string) (request.Request, error) {
	if reason == "" {
		return request.Request{}, ErrValidation.WithMessage("a rejection reason is required")
	}

	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}

		completed, err := s.payments.CountByStatus(txCtx, requestID, paymentattempt.StatusCompleted)
		if err != nil {
			return err
		}
		target := requeststatus.CodeRejected
		if completed > 0 {
			target = requeststatus.CodePendingRefund
		}

		updated, err = s.lifecycle.transitionLocked(txCtx, req, target, TransitionOptions{
			Comment:  reason,
			Metadata: map[string]any{"reason": reason},
		})
		return err
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// Assign hands the request to an officer, or back to the pool when officerID
// is nil. Requires etc.requests.assign.
func (s *RegistrationService) Assign(ctx context.Context, requestID uuid.UUID, officerID *uuid.UUID) (request.Request, error) {
	if err := authorizeETC(ctx, permissions.RequestsAssign); err != nil {
		return request.Request{}, err
	}

	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}

		old := map[string]any{"assignedTo": req.AssignedTo()}
		updated, err = s.requests.Update(txCtx, req.WithAssignedTo(officerID))
		if err != nil {
			return err
		}

		return s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionAssignedChanged,
			OldData:   auditlog.Snapshot(old),
			NewData:   auditlog.Snapshot(map[string]any{"assignedTo": officerID}),
			ActorID:   composables.ActorIDOrNil(txCtx),
		})
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// SetRFIDValue records the produced tag identifier and moves the request on to
// appointment scheduling. Requires etc.requests.manage_tags.
func (s *RegistrationService) SetRFIDValue(ctx context.Context, requestID uuid.UUID, value string) (request.Request, error) {
	if err := authorizeETC(ctx, permissions.RequestsManageTags); err != nil {
		return request.Request{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return request.Request{}, ErrValidation.WithMessage("an RFID value is required")
	}

	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}

		old := map[string]any{"rfidValue": req.RFIDValue()}
		req, err = s.requests.Update(txCtx, req.WithRFIDValue(value))
		if err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionRequestUpdated,
			OldData:   auditlog.Snapshot(old),
			NewData:   auditlog.Snapshot(map[string]any{"rfidValue": value}),
			ActorID:   composables.ActorIDOrNil(txCtx),
		}); err != nil {
			return err
		}

		if req.StatusCode() == requeststatus.CodePendingTagCreation {
			updated, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodeAwaitingAppointment, TransitionOptions{})
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// ProvisionCompleted stamps provisioning and closes the request as COMPLETED.
func (s *RegistrationService) ProvisionCompleted(ctx context.Context, requestID uuid.UUID) (request.Request, error) {
	var updated request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}

		completedAt := now()
		req, err = s.requests.Update(txCtx, req.WithProvisioningCompletedAt(&completedAt))
		if err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionProvisioningUpdated,
			NewData:   auditlog.Snapshot(map[string]any{"provisioningCompletedAt": completedAt}),
			ActorID:   composables.ActorIDOrNil(txCtx),
		}); err != nil {
			return err
		}

		updated, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodeCompleted, TransitionOptions{})
		return err
	})
	if err != nil {
		return request.Request{}, err
	}
	return updated, nil
}

// AddComment records an admin note. Requires etc.requests.comment.
func (s *RegistrationService) AddComment(
	ctx context.Context,
	requestID uuid.UUID,
	text string,
	visibility comment.Visibility,
) error {
	if err := authorizeETC(ctx, permissions.RequestsComment); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrValidation.WithMessage("comment text is required")
	}

	return composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.requests.GetByID(txCtx, requestID); err != nil {
			return err
		}
		return s.comments.Create(txCtx, comment.New(
			requestID, text, visibility, composables.ActorIDOrNil(txCtx),
		))
	})
}

// Comments lists a request's notes for the admin console.
func (s *RegistrationService) Comments(ctx context.Context, requestID uuid.UUID) ([]*comment.Comment, error) {
	if err := authorizeETC(ctx, permissions.RequestsView); err != nil {
		return nil, err
	}
	return s.comments.List(ctx, &comment.FindParams{RequestID: &requestID})
}

// CustomerComments lists only the notes the public status page may show.
func (s *RegistrationService) CustomerComments(ctx context.Context, requestID uuid.UUID) ([]*comment.Comment, error) {
	return s.comments.List(ctx, &comment.FindParams{RequestID: &requestID, CustomerOnly: true})
}

// AuditTrail lists a request's audit entries. Requires etc.requests.view.
func (s *RegistrationService) AuditTrail(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, int64, error) {
	if err := authorizeETC(ctx, permissions.RequestsView); err != nil {
		return nil, 0, err
	}
	entries, err := s.audit.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.audit.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *RegistrationService) uniqueNumber(ctx context.Context) (string, error) {
	for i := 0; i < numberAttempts; i++ {
		number := request.GenerateNumber()
		taken, err := s.requests.ExistsByNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", request.ErrNumberTaken.WithMessage("could not allocate a unique request number")
}

func nextAction(statusCode string) string {
	switch statusCode {
	case requeststatus.CodePaymentPending:
		return NextActionPaymentRequired
	case requeststatus.CodePaymentReview, requeststatus.CodePendingInformationReview:
		return NextActionWaitingForReview
	default:
		return NextActionWaiting
	}
}
