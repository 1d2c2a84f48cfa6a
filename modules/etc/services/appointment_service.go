package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/permissions"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var ErrAppointmentNotExpected = serrors.NewError(
	"ETC_APPOINTMENT_NOT_EXPECTED",
	"request is not awaiting an appointment",
	"",
)

// AppointmentService drives the appointment attempt machine. Booking and
// rescheduling re-check slot capacity inside the transaction that holds the
// request row lock, so the read-side availability answer is advisory only.
type AppointmentService struct {
	requests     request.Repository
	attempts     appointmentattempt.Repository
	locations    location.Repository
	availability *AvailabilityService
	lifecycle    *LifecycleService
	audit        auditlog.Repository
	notifier     Notifier
}

func NewAppointmentService(
	requests request.Repository,
	attempts appointmentattempt.Repository,
	locations location.Repository,
	availability *AvailabilityService,
	lifecycle *LifecycleService,
	audit auditlog.Repository,
	notifier Notifier,
) *AppointmentService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &AppointmentService{
		requests:     requests,
		attempts:     attempts,
		locations:    locations,
		availability: availability,
		lifecycle:    lifecycle,
		audit:        audit,
		notifier:     notifier,
	}
}

func (s *AppointmentService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]appointmentattempt.AppointmentAttempt, error) {
	return s.attempts.ListByRequest(ctx, requestID)
}

func (s *AppointmentService) Active(ctx context.Context, requestID uuid.UUID) (appointmentattempt.AppointmentAttempt, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}
	activeID := req.ActiveAppointmentAttemptID()
	if activeID == nil {
		return appointmentattempt.AppointmentAttempt{}, appointmentattempt.ErrNoActive
	}
	return s.attempts.GetByID(ctx, *activeID)
}

// Book schedules the installation visit. The parent must be in
// AWAITING_APPOINTMENT; a confirmed attempt is created, pointed at, and the
// parent moves to APPOINTMENT_SCHEDULED.
func (s *AppointmentService) Book(
	ctx context.Context,
	requestID uuid.UUID,
	locationID uuid.UUID,
	start time.Time,
	mode appointmentattempt.Mode,
) (appointmentattempt.AppointmentAttempt, error) {
	var booked appointmentattempt.AppointmentAttempt
	var req request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.StatusCode() != requeststatus.CodeAwaitingAppointment {
			return ErrAppointmentNotExpected.WithMessage(
				"request " + req.Number() + " is in " + req.StatusCode())
		}

		booked, err = s.createAttempt(txCtx, req, locationID, start, mode)
		if err != nil {
			return err
		}

		id := booked.ID()
		req, err = s.requests.Update(txCtx, req.WithActiveAppointmentAttemptID(&id))
		if err != nil {
			return err
		}

		req, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodeAppointmentScheduled, TransitionOptions{
			Source: SourceSystem,
		})
		return err
	})
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}

	s.notifyBooked(ctx, req, booked)
	return booked, nil
}

// Reschedule replaces the active attempt with a new one at the next attempt
// number. The displaced attempt is tagged SUPERSEDED so the history shows a
// reschedule rather than a cancellation.
func (s *AppointmentService) Reschedule(
	ctx context.Context,
	requestID uuid.UUID,
	locationID uuid.UUID,
	start time.Time,
) (appointmentattempt.AppointmentAttempt, error) {
	var booked appointmentattempt.AppointmentAttempt
	var req request.Request
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.StatusCode() != requeststatus.CodeAppointmentScheduled {
			return ErrAppointmentNotExpected.WithMessage(
				"request " + req.Number() + " is in " + req.StatusCode())
		}
		activeID := req.ActiveAppointmentAttemptID()
		if activeID == nil {
			return appointmentattempt.ErrNoActive
		}
		prior, err := s.attempts.GetByID(txCtx, *activeID)
		if err != nil {
			return err
		}
		if prior.Status().IsTerminal() {
			return appointmentattempt.ErrInvalidState.WithMessage(
				"active attempt already " + string(prior.Status()))
		}

		if _, err := s.attempts.Update(txCtx, prior.WithStatus(appointmentattempt.StatusSuperseded)); err != nil {
			return err
		}

		booked, err = s.createAttempt(txCtx, req, locationID, start, prior.Mode())
		if err != nil {
			return err
		}

		id := booked.ID()
		req, err = s.requests.Update(txCtx, req.WithActiveAppointmentAttemptID(&id))
		if err != nil {
			return err
		}

		return s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionAppointmentStatusChanged,
			OldData: auditlog.Snapshot(map[string]any{
				"attemptNo": prior.AttemptNo(),
				"status":    string(appointmentattempt.StatusSuperseded),
				"startAt":   prior.ScheduledStartAt(),
			}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": booked.AttemptNo(),
				"status":    string(appointmentattempt.StatusConfirmed),
				"startAt":   booked.ScheduledStartAt(),
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		})
	})
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}

	s.notifyBooked(ctx, req, booked)
	return booked, nil
}

// MarkNoShow records that the customer did not appear. The slot is released
// and the request goes back to AWAITING_APPOINTMENT.
func (s *AppointmentService) MarkNoShow(ctx context.Context, requestID uuid.UUID) error {
	return s.releaseActive(ctx, requestID, appointmentattempt.StatusNoShow)
}

// Cancel withdraws the active appointment and returns the request to
// AWAITING_APPOINTMENT.
func (s *AppointmentService) Cancel(ctx context.Context, requestID uuid.UUID) error {
	return s.releaseActive(ctx, requestID, appointmentattempt.StatusCancelled)
}

// Complete records the finished installation visit: the attempt closes as
// COMPLETED, the installation timestamp is stamped and the request advances to
// PENDING_PROVISIONING.
func (s *AppointmentService) Complete(ctx context.Context, requestID uuid.UUID) error {
	if err := authorizeETC(ctx, permissions.RequestsManageTags); err != nil {
		return err
	}

	return composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		activeID := req.ActiveAppointmentAttemptID()
		if activeID == nil {
			return appointmentattempt.ErrNoActive
		}
		attempt, err := s.attempts.GetByID(txCtx, *activeID)
		if err != nil {
			return err
		}
		if attempt.Status().IsTerminal() {
			return appointmentattempt.ErrInvalidState.WithMessage(
				"active attempt already " + string(attempt.Status()))
		}

		if _, err := s.attempts.Update(txCtx, attempt.WithStatus(appointmentattempt.StatusCompleted)); err != nil {
			return err
		}

		completedAt := now()
		req, err = s.requests.Update(txCtx, req.WithInstallationCompletedAt(&completedAt))
		if err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionInstallationUpdated,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(attempt.Status())}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo":   attempt.AttemptNo(),
				"status":      string(appointmentattempt.StatusCompleted),
				"completedAt": completedAt,
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		}); err != nil {
			return err
		}

		_, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodePendingProvisioning, TransitionOptions{
			Source: SourceAdmin,
		})
		return err
	})
}

// createAttempt validates the slot under the caller's row lock and persists a
// confirmed attempt at the next attempt number.
func (s *AppointmentService) createAttempt(
	ctx context.Context,
	req request.Request,
	locationID uuid.UUID,
	start time.Time,
	mode appointmentattempt.Mode,
) (appointmentattempt.AppointmentAttempt, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}
	if !loc.Active {
		return appointmentattempt.AppointmentAttempt{}, ErrSlotUnavailable.WithMessage(
			"location " + loc.Name + " is not accepting appointments")
	}
	if err := s.availability.EnsureBookable(ctx, locationID, start); err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}

	duration, err := s.availability.ServiceDuration(ctx, locationID)
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}
	maxNo, err := s.attempts.MaxAttemptNo(ctx, req.ID())
	if err != nil {
		return appointmentattempt.AppointmentAttempt{}, err
	}

	return s.attempts.Create(ctx, appointmentattempt.New(
		req.ID(), maxNo+1, locationID, start, start.Add(duration), mode,
	))
}

func (s *AppointmentService) releaseActive(
	ctx context.Context,
	requestID uuid.UUID,
	terminal appointmentattempt.Status,
) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.GetByIDForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		activeID := req.ActiveAppointmentAttemptID()
		if activeID == nil {
			return appointmentattempt.ErrNoActive
		}
		attempt, err := s.attempts.GetByID(txCtx, *activeID)
		if err != nil {
			return err
		}
		if attempt.Status().IsTerminal() {
			return appointmentattempt.ErrInvalidState.WithMessage(
				"active attempt already " + string(attempt.Status()))
		}

		if _, err := s.attempts.Update(txCtx, attempt.WithStatus(terminal)); err != nil {
			return err
		}
		req, err = s.requests.Update(txCtx, req.WithActiveAppointmentAttemptID(nil))
		if err != nil {
			return err
		}

		if err := s.audit.Create(txCtx, &auditlog.Entry{
			RequestID: requestID,
			Action:    auditlog.ActionAppointmentStatusChanged,
			OldData:   auditlog.Snapshot(map[string]any{"status": string(attempt.Status())}),
			NewData: auditlog.Snapshot(map[string]any{
				"attemptNo": attempt.AttemptNo(),
				"status":    string(terminal),
			}),
			ActorID: composables.ActorIDOrNil(txCtx),
		}); err != nil {
			return err
		}

		_, err = s.lifecycle.transitionLocked(txCtx, req, requeststatus.CodeAwaitingAppointment, TransitionOptions{
			Source: SourceSystem,
		})
		return err
	})
}

func (s *AppointmentService) notifyBooked(
	ctx context.Context,
	req request.Request,
	attempt appointmentattempt.AppointmentAttempt,
) {
	if !req.NotifyBySMS() {
		return
	}
	loc, err := s.locations.GetByID(ctx, attempt.LocationID())
	if err != nil {
		loc = location.Location{ID: attempt.LocationID()}
	}
	notifyBestEffort(ctx, "sms", func() error {
		return s.notifier.AppointmentBooked(ctx, req, attempt, loc)
	})
}
