package authz

import (
	"strings"

	"github.com/google/uuid"
)

const (
	objectSeparator  = "."
	subjectPrefix    = "user"
	subjectSeparator = ":"
)

// Mode controls how enforcement failures are treated.
type Mode string

const (
	// ModeDisabled skips enforcement entirely. Test use only.
	ModeDisabled Mode = "disabled"
	// ModeShadow evaluates and logs denies without failing the request. This is
	// the bootstrap mode for a freshly provisioned system with no roles yet.
	ModeShadow Mode = "shadow"
	// ModeEnforce denies requests that do not match policy. Steady state.
	ModeEnforce Mode = "enforce"
)

func ParseMode(v string) Mode {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case string(ModeDisabled):
		return ModeDisabled
	case string(ModeShadow):
		return ModeShadow
	default:
		return ModeEnforce
	}
}

// Request encapsulates all parameters required to evaluate a policy rule.
type Request struct {
	Subject string
	Object  string
	Action  string
}

func NewRequest(subject, object, action string) Request {
	return Request{Subject: subject, Object: object, Action: action}
}

// ObjectName builds a policy object identifier in the form module.resource.
func ObjectName(module, resource string) string {
	return module + objectSeparator + resource
}

// SubjectForUser builds a subject identifier in the form user:{userID}.
func SubjectForUser(userID uuid.UUID) string {
	if userID == uuid.Nil {
		return subjectPrefix + subjectSeparator + "anonymous"
	}
	return subjectPrefix + subjectSeparator + userID.String()
}

// Node renders the permission node string (module.resource.action) used in
// audit output and error messages.
func (r Request) Node() string {
	return r.Object + objectSeparator + r.Action
}
