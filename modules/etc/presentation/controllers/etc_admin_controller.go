package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/services"
	"github.com/iota-uz/etc-portal/pkg/application"
	"github.com/iota-uz/etc-portal/pkg/middleware"
)

// ETCAdminController is the staff console API. Every route requires an
// authenticated actor; fine-grained permission checks live on the service
// operations and transition edges.
type ETCAdminController struct {
	registration *services.RegistrationService
	lifecycle    *services.LifecycleService
	payments     *services.PaymentService
	appointments *services.AppointmentService
	statuses     *services.StatusService
}

func NewETCAdminController(app application.Application) application.Controller {
	return &ETCAdminController{
		registration: app.Service(services.RegistrationService{}).(*services.RegistrationService),
		lifecycle:    app.Service(services.LifecycleService{}).(*services.LifecycleService),
		payments:     app.Service(services.PaymentService{}).(*services.PaymentService),
		appointments: app.Service(services.AppointmentService{}).(*services.AppointmentService),
		statuses:     app.Service(services.StatusService{}).(*services.StatusService),
	}
}

func (c *ETCAdminController) Key() string {
	return "/etc/api"
}

func (c *ETCAdminController) Register(r *mux.Router) {
	sub := r.PathPrefix("/etc/api").Subrouter()
	sub.Use(middleware.RequireActor())

	sub.HandleFunc("/requests", c.listRequests).Methods(http.MethodGet)
	sub.HandleFunc("/requests/{id}", c.getRequest).Methods(http.MethodGet)
	sub.HandleFunc("/requests/{id}/status", c.updateStatus).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/reject", c.rejectRequest).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/request-edits", c.requestEdits).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/assign", c.assignRequest).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/rfid", c.setRFID).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/comments", c.addComment).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/comments", c.listComments).Methods(http.MethodGet)
	sub.HandleFunc("/requests/{id}/audit", c.listAudit).Methods(http.MethodGet)
	sub.HandleFunc("/requests/{id}/provision-completed", c.provisionCompleted).Methods(http.MethodPost)

	sub.HandleFunc("/payment-attempts/{attemptId}/approve", c.approvePayment).Methods(http.MethodPost)
	sub.HandleFunc("/payment-attempts/{attemptId}/reject", c.rejectPayment).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/payment-attempts", c.listPayments).Methods(http.MethodGet)

	sub.HandleFunc("/requests/{id}/appointment", c.bookAppointment).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/appointment/reschedule", c.rescheduleAppointment).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/appointment/no-show", c.markNoShow).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/appointment/cancel", c.cancelAppointment).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/appointment/complete", c.completeInstallation).Methods(http.MethodPost)
	sub.HandleFunc("/requests/{id}/appointments", c.listAppointments).Methods(http.MethodGet)

	sub.HandleFunc("/statuses", c.listStatuses).Methods(http.MethodGet)
	sub.HandleFunc("/statuses/{code}", c.updateStatusEntry).Methods(http.MethodPatch)
}

func (c *ETCAdminController) requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, services.ErrValidation.WithMessage("request id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (c *ETCAdminController) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &request.FindParams{
		Q:      q.Get("q"),
		Limit:  parseIntDefault(q.Get("limit"), 20),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
	if codes, ok := q["status"]; ok {
		params.StatusCodes = codes
	}
	if v := q.Get("assignedTo"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeServiceError(w, r, services.ErrValidation.WithMessage("assignedTo must be a UUID"))
			return
		}
		params.AssignedTo = &id
	}
	if v := q.Get("locationId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeServiceError(w, r, services.ErrValidation.WithMessage("locationId must be a UUID"))
			return
		}
		params.LocationID = &id
	}

	requests, total, err := c.registration.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(requests))
	for _, req := range requests {
		items = append(items, adminRequestBody(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (c *ETCAdminController) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	req, err := c.lifecycle.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	body := adminRequestBody(req)
	body["availableTargets"] = c.lifecycle.AvailableTargets(req.StatusCode())
	writeJSON(w, http.StatusOK, body)
}

func (c *ETCAdminController) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status  string `json:"status"`
		Comment string `json:"comment"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := c.lifecycle.Transition(r.Context(), id, body.Status, services.TransitionOptions{
		Comment: body.Comment,
		Source:  services.SourceAdmin,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminRequestBody(updated))
}

func (c *ETCAdminController) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := c.registration.Reject(r.Context(), id, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminRequestBody(updated))
}

func (c *ETCAdminController) requestEdits(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := c.registration.RequestEdits(r.Context(), id, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminRequestBody(updated))
}

func (c *ETCAdminController) assignRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		OfficerID *uuid.UUID `json:"officerId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := c.registration.Assign(r.Context(), id, body.OfficerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminRequestBody(updated))
}

func (c *ETCAdminController) setRFID(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := c.registration.SetRFIDValue(r.Context(), id, body.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminRequestBody(updated))
}

func (c *ETCAdminController) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Text            string `json:"text"`
		CustomerVisible bool   `json:"customerVisible"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	visibility := comment.VisibilityInternalOnly
	if body.CustomerVisible {
		visibility = comment.VisibilityInternalAndCustomer
	}
	if err := c.registration.AddComment(r.Context(), id, body.Text, visibility); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (c *ETCAdminController) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	comments, err := c.registration.Comments(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(comments))
	for _, cm := range comments {
		items = append(items, map[string]any{
			"text":       cm.Text,
			"visibility": string(cm.Visibility),
			"authorId":   cm.AuthorID,
			"createdAt":  cm.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ETCAdminController) listAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	params := &auditlog.FindParams{
		RequestID: &id,
		Limit:     parseIntDefault(q.Get("limit"), 50),
		Offset:    parseIntDefault(q.Get("offset"), 0),
	}
	entries, total, err := c.registration.AuditTrail(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"action":    string(e.Action),
			"oldData":   e.OldData,
			"newData":   e.NewData,
			"actorId":   e.ActorID,
			"createdAt": e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (c *ETCAdminController) provisionCompleted(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	updated, err := c.registration.ProvisionCompleted(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminRequestBody(updated))
}

func (c *ETCAdminController) approvePayment(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(mux.Vars(r)["attemptId"])
	if err != nil {
		writeServiceError(w, r, services.ErrValidation.WithMessage("attempt id must be a UUID"))
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := c.payments.Approve(r.Context(), attemptID, body.Notes); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "COMPLETED"})
}

func (c *ETCAdminController) rejectPayment(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(mux.Vars(r)["attemptId"])
	if err != nil {
		writeServiceError(w, r, services.ErrValidation.WithMessage("attempt id must be a UUID"))
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := c.payments.Reject(r.Context(), attemptID, body.Reason); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "REJECTED"})
}

func (c *ETCAdminController) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	attempts, err := c.payments.ListByRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, paymentBody(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ETCAdminController) bookAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		LocationID uuid.UUID `json:"locationId"`
		StartAt    time.Time `json:"startAt"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	attempt, err := c.appointments.Book(
		r.Context(), id, body.LocationID, body.StartAt, appointmentattempt.ModeStaffAssigned,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appointmentBody(attempt))
}

func (c *ETCAdminController) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		LocationID uuid.UUID `json:"locationId"`
		StartAt    time.Time `json:"startAt"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	attempt, err := c.appointments.Reschedule(r.Context(), id, body.LocationID, body.StartAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentBody(attempt))
}

func (c *ETCAdminController) markNoShow(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	if err := c.appointments.MarkNoShow(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "NO_SHOW"})
}

func (c *ETCAdminController) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	if err := c.appointments.Cancel(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "CANCELLED"})
}

func (c *ETCAdminController) completeInstallation(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	if err := c.appointments.Complete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "COMPLETED"})
}

func (c *ETCAdminController) listAppointments(w http.ResponseWriter, r *http.Request) {
	id, ok := c.requestID(w, r)
	if !ok {
		return
	}
	attempts, err := c.appointments.ListByRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, appointmentBody(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ETCAdminController) listStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := c.statuses.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, map[string]any{
			"code":       s.Code(),
			"label":      s.Label(),
			"category":   string(s.Category()),
			"orderIndex": s.OrderIndex(),
			"isTerminal": s.IsTerminal(),
			"isEditable": s.IsEditable(),
			"active":     s.Active(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ETCAdminController) updateStatusEntry(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var body struct {
		Label  *string `json:"label"`
		Active *bool   `json:"active"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if body.Label != nil {
		if _, err := c.statuses.Relabel(r.Context(), code, *body.Label); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if body.Active != nil {
		if _, err := c.statuses.SetActive(r.Context(), code, *body.Active); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	status, err := c.statuses.GetByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":   status.Code(),
		"label":  status.Label(),
		"active": status.Active(),
	})
}

func adminRequestBody(req request.Request) map[string]any {
	applicant := req.Applicant()
	body := map[string]any{
		"id":            req.ID(),
		"number":        req.Number(),
		"type":          string(req.Type()),
		"status":        req.StatusCode(),
		"firstName":     applicant.FirstName,
		"lastName":      applicant.LastName,
		"companyName":   applicant.CompanyName,
		"phone":         applicant.Phone,
		"plate":         req.Vehicle().Plate,
		"locationId":    req.LocationID(),
		"assignedTo":    req.AssignedTo(),
		"rfidValue":     req.RFIDValue(),
		"allowEdit":     req.AllowEdit(),
		"notifyBySms":   req.NotifyBySMS(),
		"notifyByEmail": req.NotifyByEmail(),
		"createdAt":     req.CreatedAt(),
		"updatedAt":     req.UpdatedAt(),
	}
	if t := req.InstallationCompletedAt(); t != nil {
		body["installationCompletedAt"] = t
	}
	if t := req.ProvisioningCompletedAt(); t != nil {
		body["provisioningCompletedAt"] = t
	}
	return body
}

func parseIntDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
