package requeststatus

import "strings"

// Category groups statuses for board-style admin views.
type Category string

const (
	CategoryOpen       Category = "OPEN"
	CategoryInProgress Category = "IN_PROGRESS"
	CategoryDone       Category = "DONE"
	CategoryFailed     Category = "FAILED"
)

// Status codes are the durable contract the UI, routing and this workflow key
// off of. Renaming one is a breaking change equivalent to a wire-protocol
// change.
const (
	CodeSubmitted                = "SUBMITTED"
	CodePaymentPending           = "PAYMENT_PENDING"
	CodePaymentReview            = "PAYMENT_REVIEW"
	CodePendingInformationReview = "PENDING_INFORMATION_REVIEW"
	CodePendingInformationEdit   = "PENDING_INFORMATION_EDIT"
	CodePendingTagCreation       = "PENDING_TAG_CREATION"
	CodeAwaitingAppointment      = "AWAITING_APPOINTMENT"
	CodeAppointmentScheduled     = "APPOINTMENT_SCHEDULED"
	CodePendingProvisioning      = "PENDING_PROVISIONING"
	CodeCompleted                = "COMPLETED"
	CodeRejected                 = "REJECTED"
	CodeCanceled                 = "CANCELED"
	CodePendingRefund            = "PENDING_REFUND"
)

type RequestStatus struct {
	code       string
	label      string
	category   Category
	orderIndex int
	isTerminal bool
	isEditable bool
	active     bool
}

func New(code, label string, category Category, orderIndex int) RequestStatus {
	return RequestStatus{
		code:       strings.TrimSpace(code),
		label:      strings.TrimSpace(label),
		category:   category,
		orderIndex: orderIndex,
		active:     true,
	}
}

func Hydrate(
	code string,
	label string,
	category Category,
	orderIndex int,
	isTerminal bool,
	isEditable bool,
	active bool,
) RequestStatus {
	return RequestStatus{
		code:       code,
		label:      label,
		category:   category,
		orderIndex: orderIndex,
		isTerminal: isTerminal,
		isEditable: isEditable,
		active:     active,
	}
}

func (s RequestStatus) Code() string       { return s.code }
func (s RequestStatus) Label() string      { return s.label }
func (s RequestStatus) Category() Category { return s.category }
func (s RequestStatus) OrderIndex() int    { return s.orderIndex }
func (s RequestStatus) IsTerminal() bool   { return s.isTerminal }
func (s RequestStatus) IsEditable() bool   { return s.isEditable }
func (s RequestStatus) Active() bool       { return s.active }
func (s RequestStatus) IsZero() bool       { return s.code == "" }

// WithTerminal and WithEditable exist for seeding; catalog rows are otherwise
// immutable once referenced.
func (s RequestStatus) WithTerminal(v bool) RequestStatus {
	s.isTerminal = v
	return s
}

func (s RequestStatus) WithEditable(v bool) RequestStatus {
	s.isEditable = v
	return s
}

func (s RequestStatus) WithLabel(label string) RequestStatus {
	s.label = strings.TrimSpace(label)
	return s
}

func (s RequestStatus) WithActive(v bool) RequestStatus {
	s.active = v
	return s
}
