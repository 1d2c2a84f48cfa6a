package serrors

import "fmt"

// BaseError is a coded error carried across service boundaries. Code is the
// stable machine-readable identifier; Hint is optional operator guidance.
type BaseError struct {
	Code    string
	Message string
	Hint    string
}

func NewError(code, message, hint string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Hint:    hint,
	}
}

func (e *BaseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMessage returns a copy with a more specific message, keeping the code so
// errors.Is comparisons against the base error still succeed via Is.
func (e *BaseError) WithMessage(message string) *BaseError {
	return &BaseError{Code: e.Code, Message: message, Hint: e.Hint}
}

func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}
