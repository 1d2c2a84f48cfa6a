package models

import "time"

// Row structs mirror the schema one to one; mapping to domain types happens in
// etc_mappers.go.

type RequestStatus struct {
	Code       string
	Label      string
	Category   string
	OrderIndex int
	IsTerminal bool
	IsEditable bool
	Active     bool
}

type Request struct {
	ID                         string
	Number                     string
	RequestType                string
	FirstName                  string
	LastName                   string
	NationalID                 string
	Phone                      string
	Email                      string
	CompanyName                string
	CompanyTIN                 string
	Plate                      string
	VehicleTypeID              string
	LocationID                 string
	StatusCode                 string
	AssignedTo                 *string
	RFIDValue                  string
	NotifyBySMS                bool
	NotifyByEmail              bool
	AllowEdit                  bool
	InstallationCompletedAt    *time.Time
	ProvisioningCompletedAt    *time.Time
	ActivePaymentAttemptID     *string
	ActiveAppointmentAttemptID *string
	Version                    int64
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

type PaymentAttempt struct {
	ID              string
	RequestID       string
	AttemptNo       int
	Method          string
	Amount          string
	Status          string
	Reference       string
	DeclaredAt      *time.Time
	VerifiedBy      *string
	VerifiedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AppointmentAttempt struct {
	ID               string
	RequestID        string
	AttemptNo        int
	LocationID       string
	ScheduledStartAt time.Time
	ScheduledEndAt   time.Time
	Mode             string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type AuditLogEntry struct {
	ID        string
	RequestID string
	Action    string
	OldData   []byte
	NewData   []byte
	ActorID   *string
	CreatedAt time.Time
}

type Comment struct {
	ID         string
	RequestID  string
	Text       string
	Visibility string
	AuthorID   *string
	CreatedAt  time.Time
}

type Location struct {
	ID      string
	Name    string
	Address string
	Phone   string
	Active  bool
}

type LocationSchedule struct {
	LocationID     string
	Weekday        int
	Open           bool
	OpensAtMinute  int
	ClosesAtMinute int
}

type LocationCapacityRule struct {
	LocationID  string
	StartMinute int
	EndMinute   int
	Capacity    int
}

type LocationCalendarBlock struct {
	ID          string
	LocationID  string
	Date        time.Time
	Kind        string
	StartMinute int
	EndMinute   int
	Reason      string
}

type LocationSlotConfig struct {
	LocationID             string
	ServiceDurationMinutes int
	GranularityMinutes     int
}
