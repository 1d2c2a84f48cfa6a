package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/pkg/authz"
)

func TestLifecycleTransition(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePendingInformationReview)

	updated, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodePendingTagCreation, TransitionOptions{})
	require.NoError(t, err)
	assert.Equal(t, requeststatus.CodePendingTagCreation, updated.StatusCode())
	assert.Equal(t, requeststatus.CodePendingTagCreation, w.requestStatus(req.ID()))

	require.Len(t, w.audit.entries, 1)
	assert.Equal(t, auditlog.ActionStatusChanged, w.audit.lastAction())

	require.Len(t, w.publisher.events, 1)
	evt, ok := w.publisher.events[0].(*request.StatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, requeststatus.CodePendingInformationReview, evt.From)
	assert.Equal(t, requeststatus.CodePendingTagCreation, evt.To)
}

func TestLifecycleTransitionUnknownEdge(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)

	_, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodeCompleted, TransitionOptions{})
	require.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Equal(t, requeststatus.CodePaymentPending, w.requestStatus(req.ID()))
}

func TestLifecycleTransitionInternalEdgeRejectedForAdmin(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodeAwaitingAppointment)

	_, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodeAppointmentScheduled, TransitionOptions{
		Source: SourceAdmin,
	})
	require.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestLifecycleTransitionPermissionDenied(t *testing.T) {
	denyAuthz(t, authz.ErrForbidden)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePendingInformationReview)

	_, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodePendingTagCreation, TransitionOptions{})
	require.ErrorIs(t, err, authz.ErrForbidden)
	assert.Equal(t, requeststatus.CodePendingInformationReview, w.requestStatus(req.ID()))
}

func TestLifecycleTransitionSystemSkipsEdgePermission(t *testing.T) {
	denyAuthz(t, authz.ErrForbidden)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentReview)

	_, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodePendingInformationReview, TransitionOptions{
		Source: SourceSystem,
	})
	require.NoError(t, err)
	assert.Equal(t, requeststatus.CodePendingInformationReview, w.requestStatus(req.ID()))
}

func TestLifecycleTransitionInactiveTarget(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePendingInformationReview)

	deactivated := w.statuses.items[requeststatus.CodePendingTagCreation].WithActive(false)
	w.statuses.items[requeststatus.CodePendingTagCreation] = deactivated

	_, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodePendingTagCreation, TransitionOptions{})
	require.ErrorIs(t, err, requeststatus.ErrInactive)
}

func TestLifecycleTransitionEditCommentIsCustomerVisible(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePendingInformationReview)

	_, err := w.lifecycle.Transition(txContext(), req.ID(), requeststatus.CodePendingInformationEdit, TransitionOptions{
		Comment: "Plate number does not match the uploaded document",
	})
	require.NoError(t, err)

	require.Len(t, w.comments.comments, 1)
	assert.Equal(t, comment.VisibilityInternalAndCustomer, w.comments.comments[0].Visibility)
}

func TestLifecycleAvailableTargets(t *testing.T) {
	w := newWorkflow()
	targets := w.lifecycle.AvailableTargets(requeststatus.CodeAppointmentScheduled)
	assert.Equal(t, []string{requeststatus.CodePendingProvisioning}, targets)
}
