package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

type statusSeed struct {
	code     string
	label    string
	category requeststatus.Category
	terminal bool
	editable bool
}

// The workflow refuses to run without these rows. Codes are a durable
// contract; labels are the only part operators are expected to change.
var statusSeeds = []statusSeed{
	{requeststatus.CodeSubmitted, "Submitted", requeststatus.CategoryOpen, false, false},
	{requeststatus.CodePaymentPending, "Payment pending", requeststatus.CategoryOpen, false, false},
	{requeststatus.CodePaymentReview, "Payment under review", requeststatus.CategoryInProgress, false, false},
	{requeststatus.CodePendingInformationReview, "Information under review", requeststatus.CategoryInProgress, false, false},
	{requeststatus.CodePendingInformationEdit, "Waiting for applicant edits", requeststatus.CategoryInProgress, false, true},
	{requeststatus.CodePendingTagCreation, "Tag creation", requeststatus.CategoryInProgress, false, false},
	{requeststatus.CodeAwaitingAppointment, "Awaiting appointment", requeststatus.CategoryInProgress, false, false},
	{requeststatus.CodeAppointmentScheduled, "Appointment scheduled", requeststatus.CategoryInProgress, false, false},
	{requeststatus.CodePendingProvisioning, "Provisioning", requeststatus.CategoryInProgress, false, false},
	{requeststatus.CodeCompleted, "Completed", requeststatus.CategoryDone, true, false},
	{requeststatus.CodeRejected, "Rejected", requeststatus.CategoryFailed, true, false},
	{requeststatus.CodeCanceled, "Canceled", requeststatus.CategoryFailed, true, false},
	{requeststatus.CodePendingRefund, "Refund pending", requeststatus.CategoryInProgress, false, false},
}

// Statuses inserts any workflow-required status the registry is missing.
// Existing rows are left untouched so operator relabels survive restarts.
func Statuses(ctx context.Context, repo requeststatus.Repository) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		for i, s := range statusSeeds {
			_, err := repo.GetByCode(txCtx, s.code)
			if err == nil {
				continue
			}
			if !errors.Is(err, requeststatus.ErrNotFound) {
				return errors.Wrap(err, "seed statuses")
			}

			status := requeststatus.New(s.code, s.label, s.category, (i+1)*10).
				WithTerminal(s.terminal).
				WithEditable(s.editable)
			if err := repo.Create(txCtx, status); err != nil {
				return errors.Wrap(err, "seed status "+s.code)
			}
		}
		return nil
	})
}
