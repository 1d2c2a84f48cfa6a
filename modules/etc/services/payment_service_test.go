package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
)

func TestPaymentCreate(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)

	first, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodBankTransfer, someAmount())
	require.NoError(t, err)
	assert.Equal(t, 1, first.AttemptNo())
	assert.Equal(t, paymentattempt.StatusPending, first.Status())

	updated, err := w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	require.NotNil(t, updated.ActivePaymentAttemptID())
	assert.Equal(t, first.ID(), *updated.ActivePaymentAttemptID())

	// Switching methods before declaring opens a fresh attempt and repoints.
	second, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodCash, someAmount())
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNo())

	updated, err = w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	assert.Equal(t, second.ID(), *updated.ActivePaymentAttemptID())
}

func TestPaymentCreateWrongStatus(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePendingInformationReview)

	_, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodCash, someAmount())
	require.ErrorIs(t, err, ErrPaymentNotExpected)
}

func TestPaymentCreateInvalidAmount(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)

	_, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodCash, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = w.payment.Create(txContext(), req.ID(), paymentattempt.MethodCash, decimal.NewFromInt(-5))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPaymentDeclare(t *testing.T) {
	declaredAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	withFixedNow(t, declaredAt)

	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodBankTransfer, someAmount())
	require.NoError(t, err)

	declared, err := w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "999202600000001")
	require.NoError(t, err)
	assert.Equal(t, paymentattempt.StatusPendingReview, declared.Status())
	assert.Equal(t, "999202600000001", declared.Reference())
	require.NotNil(t, declared.DeclaredAt())
	assert.True(t, declared.DeclaredAt().Equal(declaredAt))

	assert.Equal(t, requeststatus.CodePaymentReview, w.requestStatus(req.ID()))
}

func TestPaymentDeclareInvalidReference(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodBankTransfer, someAmount())
	require.NoError(t, err)

	_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "not-a-reference")
	require.ErrorIs(t, err, ErrInvalidReference)
	assert.Equal(t, requeststatus.CodePaymentPending, w.requestStatus(req.ID()))
}

func TestPaymentDeclareTwice(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodCash, someAmount())
	require.NoError(t, err)

	_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "receipt-1")
	require.NoError(t, err)
	_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "receipt-1")
	require.ErrorIs(t, err, paymentattempt.ErrInvalidState)
}

func TestPaymentCancelActive(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodGovPay, someAmount())
	require.NoError(t, err)

	require.NoError(t, w.payment.CancelActive(txContext(), req.ID()))

	cancelled, err := w.payments.GetByID(txContext(), attempt.ID())
	require.NoError(t, err)
	assert.Equal(t, paymentattempt.StatusCancelled, cancelled.Status())

	updated, err := w.requests.GetByID(txContext(), req.ID())
	require.NoError(t, err)
	assert.Nil(t, updated.ActivePaymentAttemptID())
}

func TestPaymentCancelDeclaredAttempt(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodGovPay, someAmount())
	require.NoError(t, err)
	_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "GW-123456")
	require.NoError(t, err)

	err = w.payment.CancelActive(txContext(), req.ID())
	require.ErrorIs(t, err, paymentattempt.ErrInvalidState)
}

func TestPaymentCancelNoActive(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	err := w.payment.CancelActive(txContext(), req.ID())
	require.ErrorIs(t, err, paymentattempt.ErrNoActive)
}

func TestPaymentApprove(t *testing.T) {
	allowAllAuthz(t)
	verifiedAt := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	withFixedNow(t, verifiedAt)

	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodBankTransfer, someAmount())
	require.NoError(t, err)
	_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "999202600000001")
	require.NoError(t, err)

	reviewer := uuid.New()
	require.NoError(t, w.payment.Approve(actorContext(reviewer), attempt.ID(), "matched bank statement"))

	approved, err := w.payments.GetByID(txContext(), attempt.ID())
	require.NoError(t, err)
	assert.Equal(t, paymentattempt.StatusCompleted, approved.Status())
	require.NotNil(t, approved.VerifiedBy())
	assert.Equal(t, reviewer, *approved.VerifiedBy())

	assert.Equal(t, requeststatus.CodePendingInformationReview, w.requestStatus(req.ID()))
	require.NotEmpty(t, w.comments.comments)
	assert.Equal(t, "matched bank statement", w.comments.comments[len(w.comments.comments)-1].Text)
}

func TestPaymentApproveWithoutActor(t *testing.T) {
	w := newWorkflow()
	err := w.payment.Approve(txContext(), uuid.New(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestPaymentApproveUndeclaredAttempt(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodCash, someAmount())
	require.NoError(t, err)

	err = w.payment.Approve(actorContext(uuid.New()), attempt.ID(), "")
	require.ErrorIs(t, err, paymentattempt.ErrInvalidState)
}

func TestPaymentReject(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodBankTransfer, someAmount())
	require.NoError(t, err)
	_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "999202600000001")
	require.NoError(t, err)

	require.NoError(t, w.payment.Reject(actorContext(uuid.New()), attempt.ID(), "amount mismatch"))

	rejected, err := w.payments.GetByID(txContext(), attempt.ID())
	require.NoError(t, err)
	assert.Equal(t, paymentattempt.StatusRejected, rejected.Status())
	assert.Equal(t, "amount mismatch", rejected.RejectionReason())

	assert.Equal(t, requeststatus.CodePaymentPending, w.requestStatus(req.ID()))
	require.NotEmpty(t, w.comments.comments)
	assert.Contains(t, w.comments.comments[0].Text, "amount mismatch")
}

func TestPaymentRejectRequiresReason(t *testing.T) {
	w := newWorkflow()
	err := w.payment.Reject(actorContext(uuid.New()), uuid.New(), "")
	require.ErrorIs(t, err, ErrRejectionReasonRequired)
}

func TestPaymentRejectionThresholdFlagsRequest(t *testing.T) {
	allowAllAuthz(t)
	w := newWorkflow()
	w.payment.cfg.RejectionFlagThreshold = 2
	req := w.seedRequest(requeststatus.CodePaymentPending)

	for i := 0; i < 2; i++ {
		attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodBankTransfer, someAmount())
		require.NoError(t, err)
		_, err = w.payment.Declare(txContext(), req.ID(), attempt.AttemptNo(), "999202600000001")
		require.NoError(t, err)
		require.NoError(t, w.payment.Reject(actorContext(uuid.New()), attempt.ID(), "unreadable receipt"))
	}

	var flagged bool
	for _, c := range w.comments.comments {
		if c.AuthorID == nil {
			flagged = true
			assert.Contains(t, c.Text, "manual intervention")
		}
	}
	assert.True(t, flagged, "threshold breach must leave a system comment")
}

func TestPaymentSimulateSuccess(t *testing.T) {
	w := newWorkflow()
	req := w.seedRequest(requeststatus.CodePaymentPending)
	attempt, err := w.payment.Create(txContext(), req.ID(), paymentattempt.MethodIPG, someAmount())
	require.NoError(t, err)

	require.NoError(t, w.payment.SimulateSuccess(txContext(), req.ID()))

	completed, err := w.payments.GetByID(txContext(), attempt.ID())
	require.NoError(t, err)
	assert.Equal(t, paymentattempt.StatusCompleted, completed.Status())
	assert.Nil(t, completed.VerifiedBy(), "simulation has no human verifier")

	assert.Equal(t, requeststatus.CodePendingInformationReview, w.requestStatus(req.ID()))
}

func TestPaymentSimulateSuccessDisabled(t *testing.T) {
	w := newWorkflow()
	w.payment.cfg.AllowSimulation = false
	err := w.payment.SimulateSuccess(txContext(), uuid.New())
	require.ErrorIs(t, err, ErrSimulationDisabled)
}
