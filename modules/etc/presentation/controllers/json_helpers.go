package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/services"
	"github.com/iota-uz/etc-portal/pkg/authz"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/httpapi"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "ETC_BAD_JSON", "request body is not valid JSON", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	_ = httpapi.WriteJSON(w, status, payload)
}

// writeServiceError is the single place workflow errors become HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, composables.ErrNoActor):
		status = http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, request.ErrNotFound),
		errors.Is(err, requeststatus.ErrNotFound),
		errors.Is(err, paymentattempt.ErrNotFound),
		errors.Is(err, appointmentattempt.ErrNotFound),
		errors.Is(err, location.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrTransitionNotAllowed),
		errors.Is(err, paymentattempt.ErrInvalidState),
		errors.Is(err, appointmentattempt.ErrInvalidState),
		errors.Is(err, services.ErrPaymentNotExpected),
		errors.Is(err, services.ErrAppointmentNotExpected),
		errors.Is(err, services.ErrEditNotAllowed),
		errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, request.ErrStaleVersion):
		status = http.StatusConflict
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidReference),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrRejectionReasonRequired),
		errors.Is(err, paymentattempt.ErrNoActive),
		errors.Is(err, appointmentattempt.ErrNoActive):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrSimulationDisabled):
		status = http.StatusNotFound
	case errors.Is(err, requeststatus.ErrMissingRequired),
		errors.Is(err, requeststatus.ErrInactive),
		errors.Is(err, authz.ErrNotConfigured):
		status = http.StatusInternalServerError
	}

	var base *serrors.BaseError
	if errors.As(err, &base) {
		if status >= http.StatusInternalServerError {
			composables.UseLogger(r.Context()).WithError(err).Error("request failed")
			// Internal detail stays out of the response body.
			_ = httpapi.WriteError(w, status, base.Code, "internal error", nil)
			return
		}
		var meta map[string]string
		if base.Hint != "" {
			meta = map[string]string{"hint": base.Hint}
		}
		_ = httpapi.WriteError(w, status, base.Code, base.Message, meta)
		return
	}

	composables.UseLogger(r.Context()).WithError(err).Error("request failed")
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "ETC_INTERNAL", "internal error", nil)
}
