package services

import (
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/permissions"
)

// Edge is a single allowed move in the request lifecycle. The table below is
// the one source of truth for legal transitions: a (from, to) pair absent from
// it is rejected server-side no matter who the caller is or which permissions
// they hold.
type Edge struct {
	From string
	To   string
	// Permission, when set, must be held by the context actor. Unset means the
	// move is reachable without a capability check (customer- or
	// system-originated edges).
	Permission *permissions.Node
	// Internal edges are only reachable through attempt-machine callbacks,
	// never through the generic admin transition endpoint.
	Internal bool
}

func perm(n permissions.Node) *permissions.Node { return &n }

var transitions = []Edge{
	// Submission paths. SUBMITTED is the no-payment entry point and feeds
	// straight into information review.
	{From: requeststatus.CodeSubmitted, To: requeststatus.CodePendingInformationReview, Internal: true},
	{From: requeststatus.CodeSubmitted, To: requeststatus.CodeCanceled, Permission: perm(permissions.RequestsReject)},

	// Payment.
	{From: requeststatus.CodePaymentPending, To: requeststatus.CodePaymentReview, Internal: true},
	{From: requeststatus.CodePaymentPending, To: requeststatus.CodeCanceled, Permission: perm(permissions.RequestsReject)},
	{From: requeststatus.CodePaymentReview, To: requeststatus.CodePendingInformationReview, Permission: perm(permissions.PaymentVerify)},
	{From: requeststatus.CodePaymentReview, To: requeststatus.CodePaymentPending, Permission: perm(permissions.PaymentVerify)},

	// Information review.
	{From: requeststatus.CodePendingInformationReview, To: requeststatus.CodePendingTagCreation, Permission: perm(permissions.RequestsApproveInfo)},
	{From: requeststatus.CodePendingInformationReview, To: requeststatus.CodePendingInformationEdit, Permission: perm(permissions.RequestsReviewInfo)},
	{From: requeststatus.CodePendingInformationReview, To: requeststatus.CodeRejected, Permission: perm(permissions.RequestsReject)},
	{From: requeststatus.CodePendingInformationReview, To: requeststatus.CodePendingRefund, Permission: perm(permissions.RequestsReject)},
	{From: requeststatus.CodePendingInformationEdit, To: requeststatus.CodePendingInformationReview, Internal: true},

	// Tag creation and appointment.
	{From: requeststatus.CodePendingTagCreation, To: requeststatus.CodeAwaitingAppointment, Permission: perm(permissions.RequestsManageTags)},
	{From: requeststatus.CodeAwaitingAppointment, To: requeststatus.CodeAppointmentScheduled, Internal: true},
	{From: requeststatus.CodeAppointmentScheduled, To: requeststatus.CodeAwaitingAppointment, Internal: true},
	{From: requeststatus.CodeAppointmentScheduled, To: requeststatus.CodePendingProvisioning, Permission: perm(permissions.RequestsManageTags)},

	// Provisioning and closure.
	{From: requeststatus.CodePendingProvisioning, To: requeststatus.CodeCompleted, Permission: perm(permissions.RequestsManageTags)},
	{From: requeststatus.CodePendingRefund, To: requeststatus.CodeRejected, Permission: perm(permissions.RequestsReject)},
	{From: requeststatus.CodePendingRefund, To: requeststatus.CodeCanceled, Permission: perm(permissions.RequestsReject)},
}

// EdgeFor returns the allowed edge for a (from, to) pair.
func EdgeFor(from, to string) (Edge, bool) {
	for _, e := range transitions {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// TargetsFrom lists the status codes reachable from the given one. The admin
// UI derives its action buttons from this instead of hard-coding them.
func TargetsFrom(from string, includeInternal bool) []string {
	var out []string
	for _, e := range transitions {
		if e.From != from {
			continue
		}
		if e.Internal && !includeInternal {
			continue
		}
		out = append(out, e.To)
	}
	return out
}
