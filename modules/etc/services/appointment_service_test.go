package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/pkg/authz"
)

func TestAppointmentBook(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)
	start := monday.Add(10 * time.Hour)

	booked, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, start, appointmentattempt.ModeUserPicked)
	require.NoError(t, err)
	assert.Equal(t, 1, booked.AttemptNo())
	assert.Equal(t, appointmentattempt.StatusConfirmed, booked.Status())
	assert.True(t, booked.ScheduledStartAt().Equal(start))
	assert.True(t, booked.ScheduledEndAt().Equal(start.Add(time.Hour)))

	updated, err := w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	assert.Equal(t, requeststatus.CodeAppointmentScheduled, updated.StatusCode())
	require.NotNil(t, updated.ActiveAppointmentAttemptID())
	assert.Equal(t, booked.ID(), *updated.ActiveAppointmentAttemptID())

	assert.Equal(t, 1, w.notifier.booked, "booking confirmation goes out by SMS")
}

func TestAppointmentBookWrongStatus(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)

	_, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, monday.Add(10*time.Hour), appointmentattempt.ModeUserPicked)
	require.ErrorIs(t, err, ErrAppointmentNotExpected)
	assert.Zero(t, w.notifier.booked)
}

func TestAppointmentBookInactiveLocation(t *testing.T) {
	w := newWorkflow()
	w.locations.loc.Active = false
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)

	_, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, monday.Add(10*time.Hour), appointmentattempt.ModeUserPicked)
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestAppointmentBookBadSlot(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)

	_, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, monday.Add(10*time.Hour+5*time.Minute), appointmentattempt.ModeUserPicked)
	require.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, requeststatus.CodeAwaitingAppointment, w.requestStatus(req.ID()))
}

func TestAppointmentReschedule(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)

	first, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, monday.Add(10*time.Hour), appointmentattempt.ModeUserPicked)
	require.NoError(t, err)

	second, err := w.appointment.Reschedule(txContext(), req.ID(), w.locations.loc.ID, monday.Add(14*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNo())
	assert.Equal(t, appointmentattempt.ModeUserPicked, second.Mode(), "reschedule keeps the original mode")

	superseded, err := w.appointments.GetByID(txContext(), first.ID())
	require.NoError(t, err)
	assert.Equal(t, appointmentattempt.StatusSuperseded, superseded.Status())

	updated, err := w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	assert.Equal(t, requeststatus.CodeAppointmentScheduled, updated.StatusCode())
	assert.Equal(t, second.ID(), *updated.ActiveAppointmentAttemptID())
}

func TestAppointmentRescheduleWithoutActive(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)

	_, err := w.appointment.Reschedule(txContext(), req.ID(), w.locations.loc.ID, monday.Add(14*time.Hour))
	require.ErrorIs(t, err, ErrAppointmentNotExpected)
}

func TestAppointmentMarkNoShow(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)
	booked, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, monday.Add(10*time.Hour), appointmentattempt.ModeUserPicked)
	require.NoError(t, err)

	require.NoError(t, w.appointment.MarkNoShow(txContext(), req.ID()))

	attempt, err := w.appointments.GetByID(txContext(), booked.ID())
	require.NoError(t, err)
	assert.Equal(t, appointmentattempt.StatusNoShow, attempt.Status())

	updated, err := w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	assert.Equal(t, requeststatus.CodeAwaitingAppointment, updated.StatusCode())
	assert.Nil(t, updated.ActiveAppointmentAttemptID())
}

func TestAppointmentCancelReleasesSlot(t *testing.T) {
	w := newWorkflow()
	w.locations.rules = []location.CapacityRule{{Capacity: 1}}
	start := monday.Add(10 * time.Hour)

	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)
	_, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, start, appointmentattempt.ModeUserPicked)
	require.NoError(t, err)

	other := w.seedRequest(requeststatus.CodeAwaitingAppointment)
	_, err = w.appointment.Book(txContext(), other.ID(), w.locations.loc.ID, start, appointmentattempt.ModeUserPicked)
	require.ErrorIs(t, err, ErrSlotUnavailable, "slot is at capacity")

	require.NoError(t, w.appointment.Cancel(txContext(), req.ID()))

	_, err = w.appointment.Book(txContext(), other.ID(), w.locations.loc.ID, start, appointmentattempt.ModeUserPicked)
	require.NoError(t, err, "cancellation frees the slot")
}

func TestAppointmentComplete(t *testing.T) {
	allowAllAuthz(t)
	completedAt := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	withFixedNow(t, completedAt)

	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)
	booked, err := w.appointment.Book(txContext(), req.ID(), w.locations.loc.ID, monday.Add(10*time.Hour), appointmentattempt.ModeStaffAssigned)
	require.NoError(t, err)

	require.NoError(t, w.appointment.Complete(actorContext(uuid.New()), req.ID()))

	attempt, err := w.appointments.GetByID(txContext(), booked.ID())
	require.NoError(t, err)
	assert.Equal(t, appointmentattempt.StatusCompleted, attempt.Status())

	updated, err := w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	assert.Equal(t, requeststatus.CodePendingProvisioning, updated.StatusCode())
	require.NotNil(t, updated.InstallationCompletedAt())
	assert.True(t, updated.InstallationCompletedAt().Equal(completedAt))
}

func TestAppointmentCompleteDenied(t *testing.T) {
	denyAuthz(t, authz.ErrForbidden)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAppointmentScheduled)

	err := w.appointment.Complete(txContext(), req.ID())
	require.ErrorIs(t, err, authz.ErrForbidden)
}
