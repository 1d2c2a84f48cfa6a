package services

import (
	"context"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/permissions"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

// StatusService administers the status registry. Workflow-required codes can
// be relabeled but never deactivated; the transition table references them.
type StatusService struct {
	statuses requeststatus.Repository
}

func NewStatusService(statuses requeststatus.Repository) *StatusService {
	return &StatusService{statuses: statuses}
}

func (s *StatusService) GetAll(ctx context.Context) ([]requeststatus.RequestStatus, error) {
	return s.statuses.GetAll(ctx)
}

func (s *StatusService) GetByCode(ctx context.Context, code string) (requeststatus.RequestStatus, error) {
	return s.statuses.GetByCode(ctx, code)
}

// Relabel changes the display label of a status. Requires etc.settings.manage.
func (s *StatusService) Relabel(ctx context.Context, code, label string) (requeststatus.RequestStatus, error) {
	if err := authorizeETC(ctx, permissions.SettingsManage); err != nil {
		return requeststatus.RequestStatus{}, err
	}
	if label == "" {
		return requeststatus.RequestStatus{}, ErrValidation.WithMessage("a label is required")
	}

	var updated requeststatus.RequestStatus
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		status, err := s.statuses.GetByCode(txCtx, code)
		if err != nil {
			return err
		}
		updated = status.WithLabel(label)
		return s.statuses.Update(txCtx, updated)
	})
	if err != nil {
		return requeststatus.RequestStatus{}, err
	}
	return updated, nil
}

// SetActive toggles a status. Codes the transition table references refuse
// deactivation so the workflow cannot be bricked from the settings screen.
func (s *StatusService) SetActive(ctx context.Context, code string, active bool) (requeststatus.RequestStatus, error) {
	if err := authorizeETC(ctx, permissions.SettingsManage); err != nil {
		return requeststatus.RequestStatus{}, err
	}
	if !active && workflowRequired(code) {
		return requeststatus.RequestStatus{}, requeststatus.ErrMissingRequired.WithMessage(
			"status " + code + " is referenced by the workflow and cannot be deactivated")
	}

	var updated requeststatus.RequestStatus
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		status, err := s.statuses.GetByCode(txCtx, code)
		if err != nil {
			return err
		}
		updated = status.WithActive(active)
		return s.statuses.Update(txCtx, updated)
	})
	if err != nil {
		return requeststatus.RequestStatus{}, err
	}
	return updated, nil
}

func workflowRequired(code string) bool {
	for _, e := range transitions {
		if e.From == code || e.To == code {
			return true
		}
	}
	return false
}
