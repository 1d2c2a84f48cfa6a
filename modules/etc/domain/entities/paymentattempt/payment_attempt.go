package paymentattempt

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodGovPay       Method = "GOVPAY"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodIPG          Method = "IPG"
	MethodCash         Method = "CASH"
)

func ParseMethod(v string) (Method, bool) {
	switch Method(strings.ToUpper(strings.TrimSpace(v))) {
	case MethodGovPay:
		return MethodGovPay, true
	case MethodBankTransfer:
		return MethodBankTransfer, true
	case MethodIPG:
		return MethodIPG, true
	case MethodCash:
		return MethodCash, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusCompleted     Status = "COMPLETED"
	StatusRejected      Status = "REJECTED"
	StatusCancelled     Status = "CANCELLED"
)

// IsTerminal reports whether the attempt can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// PaymentAttempt is one try at paying for a request. Attempts are numbered
// 1-based per request and never deleted.
type PaymentAttempt struct {
	id              uuid.UUID
	requestID       uuid.UUID
	attemptNo       int
	method          Method
	amount          decimal.Decimal
	status          Status
	reference       string
	declaredAt      *time.Time
	verifiedBy      *uuid.UUID
	verifiedAt      *time.Time
	rejectionReason string
	createdAt       time.Time
	updatedAt       time.Time
}

func New(requestID uuid.UUID, attemptNo int, method Method, amount decimal.Decimal) PaymentAttempt {
	return PaymentAttempt{
		requestID: requestID,
		attemptNo: attemptNo,
		method:    method,
		amount:    amount,
		status:    StatusPending,
	}
}

func Hydrate(
	id uuid.UUID,
	requestID uuid.UUID,
	attemptNo int,
	method Method,
	amount decimal.Decimal,
	status Status,
	reference string,
	declaredAt *time.Time,
	verifiedBy *uuid.UUID,
	verifiedAt *time.Time,
	rejectionReason string,
	createdAt time.Time,
	updatedAt time.Time,
) PaymentAttempt {
	return PaymentAttempt{
		id:              id,
		requestID:       requestID,
		attemptNo:       attemptNo,
		method:          method,
		amount:          amount,
		status:          status,
		reference:       reference,
		declaredAt:      declaredAt,
		verifiedBy:      verifiedBy,
		verifiedAt:      verifiedAt,
		rejectionReason: rejectionReason,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (p PaymentAttempt) ID() uuid.UUID           { return p.id }
func (p PaymentAttempt) RequestID() uuid.UUID    { return p.requestID }
func (p PaymentAttempt) AttemptNo() int          { return p.attemptNo }
func (p PaymentAttempt) Method() Method          { return p.method }
func (p PaymentAttempt) Amount() decimal.Decimal { return p.amount }
func (p PaymentAttempt) Status() Status          { return p.status }
func (p PaymentAttempt) Reference() string       { return p.reference }
func (p PaymentAttempt) DeclaredAt() *time.Time  { return p.declaredAt }
func (p PaymentAttempt) VerifiedBy() *uuid.UUID  { return p.verifiedBy }
func (p PaymentAttempt) VerifiedAt() *time.Time  { return p.verifiedAt }
func (p PaymentAttempt) RejectionReason() string { return p.rejectionReason }
func (p PaymentAttempt) CreatedAt() time.Time    { return p.createdAt }
func (p PaymentAttempt) UpdatedAt() time.Time    { return p.updatedAt }
func (p PaymentAttempt) IsZero() bool            { return p.id == uuid.Nil }

// Declared marks the attempt as submitted for review with its reference.
func (p PaymentAttempt) Declared(reference string, at time.Time) PaymentAttempt {
	p.status = StatusPendingReview
	p.reference = strings.TrimSpace(reference)
	p.declaredAt = &at
	return p
}

// Approved marks the attempt verified by an admin.
func (p PaymentAttempt) Approved(verifier uuid.UUID, at time.Time) PaymentAttempt {
	p.status = StatusCompleted
	p.verifiedBy = &verifier
	p.verifiedAt = &at
	return p
}

// AutoCompleted marks the attempt completed without a human verifier, used by
// the non-production simulation path.
func (p PaymentAttempt) AutoCompleted(at time.Time) PaymentAttempt {
	p.status = StatusCompleted
	p.verifiedAt = &at
	return p
}

// Rejected marks the attempt refused with a mandatory reason.
func (p PaymentAttempt) Rejected(verifier uuid.UUID, reason string, at time.Time) PaymentAttempt {
	p.status = StatusRejected
	p.verifiedBy = &verifier
	p.verifiedAt = &at
	p.rejectionReason = strings.TrimSpace(reason)
	return p
}

// Cancelled marks the attempt withdrawn by the customer before declaration.
func (p PaymentAttempt) Cancelled() PaymentAttempt {
	p.status = StatusCancelled
	return p
}
