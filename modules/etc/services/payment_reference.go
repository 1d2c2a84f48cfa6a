package services

import (
	"strconv"
	"strings"

	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/pkg/serrors"
)

var ErrInvalidReference = serrors.NewError(
	"ETC_PAYMENT_INVALID_REFERENCE",
	"payment reference does not match the expected format",
	"",
)

// ReferenceValidator checks a declared payment reference for one method.
type ReferenceValidator func(reference string) error

// DefaultReferenceValidators covers the methods that require a declared
// reference. GOVPAY and IPG confirm out-of-band through the gateway, so any
// non-empty reference passes; CASH needs none.
func DefaultReferenceValidators() map[paymentattempt.Method]ReferenceValidator {
	return map[paymentattempt.Method]ReferenceValidator{
		paymentattempt.MethodBankTransfer: ValidateBankTransferReference,
		paymentattempt.MethodGovPay:       validateNonEmptyReference,
		paymentattempt.MethodIPG:          validateNonEmptyReference,
		paymentattempt.MethodCash:         func(string) error { return nil },
	}
}

// ValidateBankTransferReference accepts 15 or 16 numeric digits whose
// positions 4-7 carry a plausible payment year, e.g. 999202500000001.
func ValidateBankTransferReference(reference string) error {
	ref := strings.TrimSpace(reference)
	if len(ref) != 15 && len(ref) != 16 {
		return ErrInvalidReference.WithMessage("reference must be 15 or 16 digits")
	}
	for _, c := range ref {
		if c < '0' || c > '9' {
			return ErrInvalidReference.WithMessage("reference must be numeric")
		}
	}
	year, err := strconv.Atoi(ref[3:7])
	if err != nil || year < 2000 || year > 2100 {
		return ErrInvalidReference.WithMessage("reference carries an implausible year")
	}
	return nil
}

func validateNonEmptyReference(reference string) error {
	if strings.TrimSpace(reference) == "" {
		return ErrInvalidReference.WithMessage("reference is required")
	}
	return nil
}
