package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/services"
	"github.com/iota-uz/etc-portal/pkg/authz"
)

func TestWriteServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no actor", services.ErrUnauthorized, http.StatusUnauthorized, "ETC_UNAUTHORIZED"},
		{"forbidden", authz.ErrForbidden, http.StatusForbidden, "AUTHZ_FORBIDDEN"},
		{"not found", request.ErrNotFound, http.StatusNotFound, "ETC_REQUEST_NOT_FOUND"},
		{"bad transition", services.ErrTransitionNotAllowed, http.StatusConflict, "ETC_INVALID_TRANSITION"},
		{"stale version", request.ErrStaleVersion, http.StatusConflict, "ETC_REQUEST_STALE"},
		{"attempt state", paymentattempt.ErrInvalidState, http.StatusConflict, "ETC_PAYMENT_ATTEMPT_INVALID_STATE"},
		{"validation", services.ErrValidation, http.StatusBadRequest, "ETC_VALIDATION"},
		{"bad reference", services.ErrInvalidReference, http.StatusBadRequest, "ETC_PAYMENT_INVALID_REFERENCE"},
		{"no active attempt", paymentattempt.ErrNoActive, http.StatusBadRequest, "ETC_PAYMENT_ATTEMPT_NO_ACTIVE"},
		// The simulation endpoint denies its own existence outside test envs.
		{"simulation disabled", services.ErrSimulationDisabled, http.StatusNotFound, "ETC_SIMULATION_DISABLED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			writeServiceError(rec, req, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			var body struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeServiceError(rec, req, errors.New("pq: connection refused at 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestWriteServiceErrorWrappedMessageSurvives(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeServiceError(rec, req, services.ErrEditNotAllowed.WithMessage("request RQ-AAAAA is in COMPLETED"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "RQ-AAAAA")
}
