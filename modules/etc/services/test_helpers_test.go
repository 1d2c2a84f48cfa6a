package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/permissions"
	"github.com/iota-uz/etc-portal/pkg/composables"
)

// stubTx satisfies the context transaction check without a database. The fakes
// below never touch it.
type stubTx struct{ pgx.Tx }

func txContext() context.Context {
	return composables.WithTx(context.Background(), stubTx{})
}

func actorContext(actorID uuid.UUID) context.Context {
	return composables.WithActorID(txContext(), actorID)
}

func allowAllAuthz(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { authorizeETCFn = defaultAuthorizeETC })
	authorizeETCFn = func(context.Context, permissions.Node) error { return nil }
}

func denyAuthz(t *testing.T, deny error) {
	t.Helper()
	t.Cleanup(func() { authorizeETCFn = defaultAuthorizeETC })
	authorizeETCFn = func(context.Context, permissions.Node) error { return deny }
}

func withFixedNow(t *testing.T, at time.Time) {
	t.Helper()
	t.Cleanup(func() { now = time.Now })
	now = func() time.Time { return at }
}

type stubPublisher struct {
	events []interface{}
}

func (s *stubPublisher) Publish(args ...interface{})   { s.events = append(s.events, args...) }
func (s *stubPublisher) Subscribe(handler interface{}) {}
func (s *stubPublisher) Unsubscribe(interface{})       {}
func (s *stubPublisher) Clear()                        {}
func (s *stubPublisher) SubscribersCount() int         { return 0 }

type fakeRequestRepo struct {
	items       map[uuid.UUID]request.Request
	numberTaken func(number string) bool
	existsCalls int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{items: map[uuid.UUID]request.Request{}}
}

func (f *fakeRequestRepo) put(r request.Request) request.Request {
	f.items[r.ID()] = r
	return r
}

func (f *fakeRequestRepo) GetPaginated(ctx context.Context, params *request.FindParams) ([]request.Request, int64, error) {
	out := make([]request.Request, 0, len(f.items))
	for _, r := range f.items {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (request.Request, error) {
	r, ok := f.items[id]
	if !ok {
		return request.Request{}, request.ErrNotFound
	}
	return r, nil
}

func (f *fakeRequestRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (request.Request, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRequestRepo) GetByNumber(ctx context.Context, number string) (request.Request, error) {
	for _, r := range f.items {
		if r.Number() == number {
			return r, nil
		}
	}
	return request.Request{}, request.ErrNotFound
}

func (f *fakeRequestRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	f.existsCalls++
	if f.numberTaken != nil {
		return f.numberTaken(number), nil
	}
	_, err := f.GetByNumber(ctx, number)
	return err == nil, nil
}

func (f *fakeRequestRepo) Create(ctx context.Context, r request.Request) (request.Request, error) {
	hydrated := request.Hydrate(
		uuid.New(), r.Number(), r.Type(), r.Applicant(), r.Vehicle(), r.LocationID(),
		r.StatusCode(), r.AssignedTo(), r.RFIDValue(), r.NotifyBySMS(), r.NotifyByEmail(),
		r.AllowEdit(), r.InstallationCompletedAt(), r.ProvisioningCompletedAt(),
		r.ActivePaymentAttemptID(), r.ActiveAppointmentAttemptID(),
		1, time.Now(), time.Now(),
	)
	return f.put(hydrated), nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, r request.Request) (request.Request, error) {
	if _, ok := f.items[r.ID()]; !ok {
		return request.Request{}, request.ErrNotFound
	}
	return f.put(r), nil
}

type fakeStatusRepo struct {
	items map[string]requeststatus.RequestStatus
}

func newFakeStatusRepo() *fakeStatusRepo {
	f := &fakeStatusRepo{items: map[string]requeststatus.RequestStatus{}}
	codes := []string{
		requeststatus.CodeSubmitted,
		requeststatus.CodePaymentPending,
		requeststatus.CodePaymentReview,
		requeststatus.CodePendingInformationReview,
		requeststatus.CodePendingInformationEdit,
		requeststatus.CodePendingTagCreation,
		requeststatus.CodeAwaitingAppointment,
		requeststatus.CodeAppointmentScheduled,
		requeststatus.CodePendingProvisioning,
		requeststatus.CodeCompleted,
		requeststatus.CodeRejected,
		requeststatus.CodeCanceled,
		requeststatus.CodePendingRefund,
	}
	for i, code := range codes {
		f.items[code] = requeststatus.New(code, code, requeststatus.CategoryInProgress, (i+1)*10)
	}
	return f
}

func (f *fakeStatusRepo) GetAll(ctx context.Context) ([]requeststatus.RequestStatus, error) {
	out := make([]requeststatus.RequestStatus, 0, len(f.items))
	for _, s := range f.items {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStatusRepo) GetByCode(ctx context.Context, code string) (requeststatus.RequestStatus, error) {
	s, ok := f.items[code]
	if !ok {
		return requeststatus.RequestStatus{}, requeststatus.ErrNotFound
	}
	return s, nil
}

func (f *fakeStatusRepo) Create(ctx context.Context, status requeststatus.RequestStatus) error {
	f.items[status.Code()] = status
	return nil
}

func (f *fakeStatusRepo) Update(ctx context.Context, status requeststatus.RequestStatus) error {
	if _, ok := f.items[status.Code()]; !ok {
		return requeststatus.ErrNotFound
	}
	f.items[status.Code()] = status
	return nil
}

type fakePaymentRepo struct {
	items []paymentattempt.PaymentAttempt
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (paymentattempt.PaymentAttempt, error) {
	for _, a := range f.items {
		if a.ID() == id {
			return a, nil
		}
	}
	return paymentattempt.PaymentAttempt{}, paymentattempt.ErrNotFound
}

func (f *fakePaymentRepo) GetByRequestAndNo(ctx context.Context, requestID uuid.UUID, attemptNo int) (paymentattempt.PaymentAttempt, error) {
	for _, a := range f.items {
		if a.RequestID() == requestID && a.AttemptNo() == attemptNo {
			return a, nil
		}
	}
	return paymentattempt.PaymentAttempt{}, paymentattempt.ErrNotFound
}

func (f *fakePaymentRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]paymentattempt.PaymentAttempt, error) {
	var out []paymentattempt.PaymentAttempt
	for _, a := range f.items {
		if a.RequestID() == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) MaxAttemptNo(ctx context.Context, requestID uuid.UUID) (int, error) {
	max := 0
	for _, a := range f.items {
		if a.RequestID() == requestID && a.AttemptNo() > max {
			max = a.AttemptNo()
		}
	}
	return max, nil
}

func (f *fakePaymentRepo) CountByStatus(ctx context.Context, requestID uuid.UUID, status paymentattempt.Status) (int, error) {
	n := 0
	for _, a := range f.items {
		if a.RequestID() == requestID && a.Status() == status {
			n++
		}
	}
	return n, nil
}

func (f *fakePaymentRepo) Create(ctx context.Context, attempt paymentattempt.PaymentAttempt) (paymentattempt.PaymentAttempt, error) {
	hydrated := paymentattempt.Hydrate(
		uuid.New(), attempt.RequestID(), attempt.AttemptNo(), attempt.Method(),
		attempt.Amount(), attempt.Status(), attempt.Reference(), attempt.DeclaredAt(),
		attempt.VerifiedBy(), attempt.VerifiedAt(), attempt.RejectionReason(),
		time.Now(), time.Now(),
	)
	f.items = append(f.items, hydrated)
	return hydrated, nil
}

func (f *fakePaymentRepo) Update(ctx context.Context, attempt paymentattempt.PaymentAttempt) (paymentattempt.PaymentAttempt, error) {
	for i, a := range f.items {
		if a.ID() == attempt.ID() {
			f.items[i] = attempt
			return attempt, nil
		}
	}
	return paymentattempt.PaymentAttempt{}, paymentattempt.ErrNotFound
}

type fakeAppointmentRepo struct {
	items []appointmentattempt.AppointmentAttempt
}

func (f *fakeAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (appointmentattempt.AppointmentAttempt, error) {
	for _, a := range f.items {
		if a.ID() == id {
			return a, nil
		}
	}
	return appointmentattempt.AppointmentAttempt{}, appointmentattempt.ErrNotFound
}

func (f *fakeAppointmentRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]appointmentattempt.AppointmentAttempt, error) {
	var out []appointmentattempt.AppointmentAttempt
	for _, a := range f.items {
		if a.RequestID() == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) MaxAttemptNo(ctx context.Context, requestID uuid.UUID) (int, error) {
	max := 0
	for _, a := range f.items {
		if a.RequestID() == requestID && a.AttemptNo() > max {
			max = a.AttemptNo()
		}
	}
	return max, nil
}

func (f *fakeAppointmentRepo) CountAtSlot(ctx context.Context, locationID uuid.UUID, startAt time.Time) (int, error) {
	n := 0
	for _, a := range f.items {
		if a.LocationID() == locationID && a.ScheduledStartAt().Equal(startAt) && a.Status().ConsumesCapacity() {
			n++
		}
	}
	return n, nil
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, attempt appointmentattempt.AppointmentAttempt) (appointmentattempt.AppointmentAttempt, error) {
	hydrated := appointmentattempt.Hydrate(
		uuid.New(), attempt.RequestID(), attempt.AttemptNo(), attempt.LocationID(),
		attempt.ScheduledStartAt(), attempt.ScheduledEndAt(), attempt.Mode(),
		attempt.Status(), time.Now(), time.Now(),
	)
	f.items = append(f.items, hydrated)
	return hydrated, nil
}

func (f *fakeAppointmentRepo) Update(ctx context.Context, attempt appointmentattempt.AppointmentAttempt) (appointmentattempt.AppointmentAttempt, error) {
	for i, a := range f.items {
		if a.ID() == attempt.ID() {
			f.items[i] = attempt
			return attempt, nil
		}
	}
	return appointmentattempt.AppointmentAttempt{}, appointmentattempt.ErrNotFound
}

type fakeLocationRepo struct {
	loc      location.Location
	schedule []location.DaySchedule
	rules    []location.CapacityRule
	blocks   []location.CalendarBlock
	slotCfg  location.SlotConfig
}

func (f *fakeLocationRepo) GetAll(ctx context.Context) ([]location.Location, error) {
	return []location.Location{f.loc}, nil
}

func (f *fakeLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (location.Location, error) {
	if f.loc.ID != id {
		return location.Location{}, location.ErrNotFound
	}
	return f.loc, nil
}

func (f *fakeLocationRepo) GetWeeklySchedule(ctx context.Context, locationID uuid.UUID) ([]location.DaySchedule, error) {
	return f.schedule, nil
}

func (f *fakeLocationRepo) GetCapacityRules(ctx context.Context, locationID uuid.UUID) ([]location.CapacityRule, error) {
	return f.rules, nil
}

func (f *fakeLocationRepo) GetBlocksOn(ctx context.Context, locationID uuid.UUID, date time.Time) ([]location.CalendarBlock, error) {
	var out []location.CalendarBlock
	for _, b := range f.blocks {
		y1, m1, d1 := b.Date.Date()
		y2, m2, d2 := date.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeLocationRepo) GetSlotConfig(ctx context.Context, locationID uuid.UUID) (location.SlotConfig, error) {
	return f.slotCfg, nil
}

type fakeAuditRepo struct {
	entries []*auditlog.Entry
}

func (f *fakeAuditRepo) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	var out []*auditlog.Entry
	for _, e := range f.entries {
		if params.RequestID != nil && e.RequestID != *params.RequestID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAuditRepo) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	entries, err := f.List(ctx, params)
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *auditlog.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) lastAction() auditlog.Action {
	if len(f.entries) == 0 {
		return ""
	}
	return f.entries[len(f.entries)-1].Action
}

type fakeCommentRepo struct {
	comments []*comment.Comment
}

func (f *fakeCommentRepo) List(ctx context.Context, params *comment.FindParams) ([]*comment.Comment, error) {
	var out []*comment.Comment
	for _, c := range f.comments {
		if params.RequestID != nil && c.RequestID != *params.RequestID {
			continue
		}
		if params.CustomerOnly && c.Visibility != comment.VisibilityInternalAndCustomer {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCommentRepo) Create(ctx context.Context, c *comment.Comment) error {
	f.comments = append(f.comments, c)
	return nil
}

type recordingNotifier struct {
	submitted int
	booked    int
	fail      error
}

func (n *recordingNotifier) RequestSubmitted(context.Context, request.Request) error {
	n.submitted++
	return n.fail
}

func (n *recordingNotifier) StatusChanged(context.Context, request.Request, string, string) error {
	return n.fail
}

func (n *recordingNotifier) AppointmentBooked(context.Context, request.Request, appointmentattempt.AppointmentAttempt, location.Location) error {
	n.booked++
	return n.fail
}

// workflow bundles every service over shared fakes so a test can drive one
// operation and inspect any side of it.
type workflow struct {
	requests     *fakeRequestRepo
	statuses     *fakeStatusRepo
	payments     *fakePaymentRepo
	appointments *fakeAppointmentRepo
	locations    *fakeLocationRepo
	audit        *fakeAuditRepo
	comments     *fakeCommentRepo
	publisher    *stubPublisher
	notifier     *recordingNotifier

	lifecycle    *LifecycleService
	availability *AvailabilityService
	payment      *PaymentService
	appointment  *AppointmentService
	registration *RegistrationService
	status       *StatusService
}

func newWorkflow() *workflow {
	w := &workflow{
		requests:     newFakeRequestRepo(),
		statuses:     newFakeStatusRepo(),
		payments:     &fakePaymentRepo{},
		appointments: &fakeAppointmentRepo{},
		locations:    openLocation(),
		audit:        &fakeAuditRepo{},
		comments:     &fakeCommentRepo{},
		publisher:    &stubPublisher{},
		notifier:     &recordingNotifier{},
	}
	w.lifecycle = NewLifecycleService(w.requests, w.statuses, w.audit, w.comments, w.publisher)
	w.availability = NewAvailabilityService(w.locations, w.appointments, AvailabilityConfig{})
	w.payment = NewPaymentService(w.requests, w.payments, w.lifecycle, w.audit, w.comments, w.publisher, PaymentServiceConfig{
		AllowSimulation: true,
	})
	w.appointment = NewAppointmentService(w.requests, w.appointments, w.locations, w.availability, w.lifecycle, w.audit, w.notifier)
	w.registration = NewRegistrationService(w.requests, w.statuses, w.payments, w.lifecycle, w.audit, w.comments, w.publisher, w.notifier, RegistrationConfig{
		PaymentRequired: true,
	})
	w.status = NewStatusService(w.statuses)
	return w
}

// openLocation is open 09:00-17:00 every weekday with no blocks or caps.
func openLocation() *fakeLocationRepo {
	f := &fakeLocationRepo{
		loc: location.Location{ID: uuid.New(), Name: "Central Depot", Address: "1 Ring Rd", Active: true},
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		open := wd != time.Saturday && wd != time.Sunday
		f.schedule = append(f.schedule, location.DaySchedule{
			Weekday:        wd,
			Open:           open,
			OpensAtMinute:  9 * 60,
			ClosesAtMinute: 17 * 60,
		})
	}
	return f
}

func (w *workflow) seedRequest(statusCode string) request.Request {
	created, _ := w.requests.Create(context.Background(), request.New(
		request.GenerateNumber(),
		request.TypeNewIndividual,
		request.Applicant{FirstName: "Aziz", LastName: "Karimov", NationalID: "AB1234567", Phone: "+998901234567"},
		request.Vehicle{Plate: "01A123BC", VehicleTypeID: uuid.New()},
		w.locations.loc.ID,
		statusCode,
		true,
		false,
	))
	return created
}

func (w *workflow) requestStatus(id uuid.UUID) string {
	r, _ := w.requests.GetByID(context.Background(), id)
	return r.StatusCode()
}

func someAmount() decimal.Decimal {
	return decimal.NewFromInt(150000)
}
