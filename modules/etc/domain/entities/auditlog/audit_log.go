package auditlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionRequestCreated           Action = "REQUEST_CREATED"
	ActionStatusChanged            Action = "STATUS_CHANGED"
	ActionPaymentStatusChanged     Action = "PAYMENT_STATUS_CHANGED"
	ActionAppointmentStatusChanged Action = "APPOINTMENT_STATUS_CHANGED"
	ActionRequestUpdated           Action = "REQUEST_UPDATED"
	ActionAssignedChanged          Action = "ASSIGNED_CHANGED"
	ActionInstallationUpdated      Action = "INSTALLATION_UPDATED"
	ActionProvisioningUpdated      Action = "PROVISIONING_UPDATED"
)

// Entry is one append-only audit record. Entries are never mutated or deleted;
// ActorID is nil for system-originated mutations.
type Entry struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	Action    Action
	OldData   json.RawMessage
	NewData   json.RawMessage
	ActorID   *uuid.UUID
	CreatedAt time.Time
}

// Snapshot marshals an arbitrary payload for the old/new columns. A marshal
// failure is a programming error and panics rather than silently losing audit
// data.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

type FindParams struct {
	RequestID *uuid.UUID
	Actions   []Action
	Limit     int
	Offset    int
}
