package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/services"
	"github.com/iota-uz/etc-portal/pkg/application"
	"github.com/iota-uz/etc-portal/pkg/httpapi"
)

const dateLayout = "2006-01-02"

// dayStart truncates to midnight in t's own zone.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// paymentInstructions is what the customer sees after opening an attempt.
var paymentInstructions = map[paymentattempt.Method]string{
	paymentattempt.MethodGovPay:       "Complete the payment in the GovPay portal using your request number.",
	paymentattempt.MethodBankTransfer: "Transfer the amount to the treasury account and declare the transaction reference.",
	paymentattempt.MethodIPG:          "Follow the card payment link sent to your phone.",
	paymentattempt.MethodCash:         "Pay in cash at any service location and keep the receipt.",
}

// RegistrationAPIController is the unauthenticated customer-facing surface.
// Possession of the request number is the only credential.
type RegistrationAPIController struct {
	registration *services.RegistrationService
	payments     *services.PaymentService
	appointments *services.AppointmentService
	availability *services.AvailabilityService
}

func NewRegistrationAPIController(app application.Application) application.Controller {
	return &RegistrationAPIController{
		registration: app.Service(services.RegistrationService{}).(*services.RegistrationService),
		payments:     app.Service(services.PaymentService{}).(*services.PaymentService),
		appointments: app.Service(services.AppointmentService{}).(*services.AppointmentService),
		availability: app.Service(services.AvailabilityService{}).(*services.AvailabilityService),
	}
}

func (c *RegistrationAPIController) Key() string {
	return "/registration"
}

func (c *RegistrationAPIController) Register(r *mux.Router) {
	sub := r.PathPrefix("/registration").Subrouter()
	sub.HandleFunc("/request", c.submit).Methods(http.MethodPost)
	sub.HandleFunc("/locations", c.locations).Methods(http.MethodGet)
	sub.HandleFunc("/{requestNo}", c.status).Methods(http.MethodGet)
	sub.HandleFunc("/{requestNo}/payment-attempt", c.createPayment).Methods(http.MethodPost)
	sub.HandleFunc("/{requestNo}/payment-attempt/active", c.cancelActivePayment).Methods(http.MethodDelete)
	sub.HandleFunc("/{requestNo}/payment-attempt/{attemptNo}/declare", c.declarePayment).Methods(http.MethodPost)
	sub.HandleFunc("/{requestNo}/payment-attempt/simulate-success", c.simulatePayment).Methods(http.MethodPost)
	sub.HandleFunc("/{requestNo}/appointment/dates", c.appointmentDates).Methods(http.MethodGet)
	sub.HandleFunc("/{requestNo}/appointment/slots", c.appointmentSlots).Methods(http.MethodGet)
	sub.HandleFunc("/{requestNo}/appointment", c.bookAppointment).Methods(http.MethodPost)
	sub.HandleFunc("/{requestNo}/update", c.update).Methods(http.MethodPost)
	sub.HandleFunc("/{requestNo}/resubmit", c.resubmit).Methods(http.MethodPost)
}

func (c *RegistrationAPIController) submit(w http.ResponseWriter, r *http.Request) {
	var dto request.CreateDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	created, err := c.registration.Submit(r.Context(), &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"requestNo": created.Number(),
		"status":    created.StatusCode(),
	})
}

func (c *RegistrationAPIController) locations(w http.ResponseWriter, r *http.Request) {
	locations, err := c.availability.Locations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(locations))
	for _, loc := range locations {
		out = append(out, map[string]any{
			"id":      loc.ID,
			"name":    loc.Name,
			"address": loc.Address,
			"phone":   loc.Phone,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

func (c *RegistrationAPIController) status(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	body := map[string]any{
		"requestNo":   view.Request.Number(),
		"status":      view.Status.Code(),
		"statusLabel": view.Status.Label(),
		"category":    string(view.Status.Category()),
		"nextAction":  view.NextAction,
		"allowEdit":   view.Request.AllowEdit(),
		"plate":       view.Request.Vehicle().Plate,
		"createdAt":   view.Request.CreatedAt(),
	}
	if view.ActivePayment != nil {
		body["activePayment"] = paymentBody(*view.ActivePayment)
	}

	comments, err := c.registration.CustomerComments(r.Context(), view.Request.ID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(comments) > 0 {
		notes := make([]map[string]any, 0, len(comments))
		for _, cm := range comments {
			notes = append(notes, map[string]any{
				"text":      cm.Text,
				"createdAt": cm.CreatedAt,
			})
		}
		body["notes"] = notes
	}
	writeJSON(w, http.StatusOK, body)
}

func (c *RegistrationAPIController) createPayment(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var body struct {
		Method string `json:"method"`
		Amount string `json:"amount"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	method, ok := paymentattempt.ParseMethod(body.Method)
	if !ok {
		writeServiceError(w, r, services.ErrValidation.WithMessage("unknown payment method "+body.Method))
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeServiceError(w, r, services.ErrValidation.WithMessage("amount is not a valid decimal"))
		return
	}

	attempt, err := c.payments.Create(r.Context(), view.Request.ID(), method, amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"attemptNo":    attempt.AttemptNo(),
		"method":       string(attempt.Method()),
		"status":       string(attempt.Status()),
		"instructions": paymentInstructions[attempt.Method()],
	})
}

func (c *RegistrationAPIController) cancelActivePayment(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := c.payments.CancelActive(r.Context(), view.Request.ID()); err != nil {
		// The public contract promises 400 for a declared attempt, not the
		// generic conflict mapping.
		if errors.Is(err, paymentattempt.ErrInvalidState) {
			_ = httpapi.WriteError(w, http.StatusBadRequest,
				"ETC_PAYMENT_ATTEMPT_INVALID_STATE", "only a pending attempt can be cancelled", nil)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (c *RegistrationAPIController) declarePayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := c.registration.GetByNumber(r.Context(), vars["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	attemptNo, err := strconv.Atoi(vars["attemptNo"])
	if err != nil {
		writeServiceError(w, r, services.ErrValidation.WithMessage("attempt number must be an integer"))
		return
	}

	var body struct {
		Reference string `json:"reference"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	attempt, err := c.payments.Declare(r.Context(), view.Request.ID(), attemptNo, body.Reference)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentBody(attempt))
}

func (c *RegistrationAPIController) simulatePayment(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := c.payments.SimulateSuccess(r.Context(), view.Request.ID()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "COMPLETED"})
}

func (c *RegistrationAPIController) appointmentDates(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	from := dayStart(time.Now().In(c.availability.TimeLocation()))
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(dateLayout, v)
		if err != nil {
			writeServiceError(w, r, services.ErrValidation.WithMessage("from must be YYYY-MM-DD"))
			return
		}
	}
	days := 14
	if v := r.URL.Query().Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 || days > 60 {
			writeServiceError(w, r, services.ErrValidation.WithMessage("days must be between 1 and 60"))
			return
		}
	}

	dates, err := c.availability.AvailableDates(r.Context(), view.Request.LocationID(), from, days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(dates))
	for _, d := range dates {
		entry := map[string]any{
			"date":      d.Date.Format(dateLayout),
			"available": d.Available,
		}
		if d.Reason != "" {
			entry["reason"] = d.Reason
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

func (c *RegistrationAPIController) appointmentSlots(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, services.ErrValidation.WithMessage("date must be YYYY-MM-DD"))
		return
	}

	result, err := c.availability.AvailableSlots(r.Context(), view.Request.LocationID(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if result.Unavailable {
		writeJSON(w, http.StatusOK, map[string]any{
			"unavailable": true,
			"reason":      result.Reason,
		})
		return
	}
	slots := make([]map[string]any, 0, len(result.Slots))
	for _, s := range result.Slots {
		slots = append(slots, map[string]any{
			"startAt":   s.StartAt,
			"endAt":     s.EndAt,
			"available": s.Available,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (c *RegistrationAPIController) bookAppointment(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var body struct {
		StartAt time.Time `json:"startAt"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.StartAt.IsZero() {
		writeServiceError(w, r, services.ErrValidation.WithMessage("startAt is required"))
		return
	}

	attempt, err := c.appointments.Book(
		r.Context(),
		view.Request.ID(),
		view.Request.LocationID(),
		body.StartAt,
		appointmentattempt.ModeUserPicked,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appointmentBody(attempt))
}

func (c *RegistrationAPIController) update(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var dto request.UpdateDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	updated, err := c.registration.Update(r.Context(), view.Request.ID(), &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requestNo": updated.Number(),
		"status":    updated.StatusCode(),
	})
}

func (c *RegistrationAPIController) resubmit(w http.ResponseWriter, r *http.Request) {
	view, err := c.registration.GetByNumber(r.Context(), mux.Vars(r)["requestNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, err := c.registration.Resubmit(r.Context(), view.Request.ID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requestNo": updated.Number(),
		"status":    updated.StatusCode(),
	})
}

func paymentBody(a paymentattempt.PaymentAttempt) map[string]any {
	body := map[string]any{
		"attemptNo": a.AttemptNo(),
		"method":    string(a.Method()),
		"amount":    a.Amount().String(),
		"status":    string(a.Status()),
	}
	if a.Reference() != "" {
		body["reference"] = a.Reference()
	}
	if a.RejectionReason() != "" {
		body["rejectionReason"] = a.RejectionReason()
	}
	return body
}

func appointmentBody(a appointmentattempt.AppointmentAttempt) map[string]any {
	return map[string]any{
		"attemptNo":  a.AttemptNo(),
		"locationId": a.LocationID(),
		"startAt":    a.ScheduledStartAt(),
		"endAt":      a.ScheduledEndAt(),
		"mode":       string(a.Mode()),
		"status":     string(a.Status()),
	}
}
