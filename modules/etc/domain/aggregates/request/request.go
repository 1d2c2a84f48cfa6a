package request

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeNewIndividual Type = "NEW_INDIVIDUAL"
	TypeNewCompany    Type = "NEW_COMPANY"
)

// Applicant carries the person or company the tag is registered for. Company
// fields are empty for individual requests.
type Applicant struct {
	FirstName   string
	LastName    string
	NationalID  string
	Phone       string
	Email       string
	CompanyName string
	CompanyTIN  string
}

// Vehicle is the unit the RFID tag will be installed on.
type Vehicle struct {
	Plate         string
	VehicleTypeID uuid.UUID
}

// Request is the central aggregate: one applicant's end-to-end ETC tag
// registration case. It is never deleted; terminal statuses freeze it.
type Request struct {
	id            uuid.UUID
	number        string
	requestType   Type
	applicant     Applicant
	vehicle       Vehicle
	locationID    uuid.UUID
	statusCode    string
	assignedTo    *uuid.UUID
	rfidValue     string
	notifyBySMS   bool
	notifyByEmail bool
	allowEdit     bool

	installationCompletedAt *time.Time
	provisioningCompletedAt *time.Time

	activePaymentAttemptID     *uuid.UUID
	activeAppointmentAttemptID *uuid.UUID

	// version backs the optimistic compare-and-swap every update runs under;
	// two writers racing on the same request cannot both win.
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

func New(
	number string,
	requestType Type,
	applicant Applicant,
	vehicle Vehicle,
	locationID uuid.UUID,
	statusCode string,
	notifyBySMS, notifyByEmail bool,
) Request {
	return Request{
		number:        strings.TrimSpace(number),
		requestType:   requestType,
		applicant:     applicant,
		vehicle:       vehicle,
		locationID:    locationID,
		statusCode:    statusCode,
		notifyBySMS:   notifyBySMS,
		notifyByEmail: notifyByEmail,
		version:       1,
	}
}

func Hydrate(
	id uuid.UUID,
	number string,
	requestType Type,
	applicant Applicant,
	vehicle Vehicle,
	locationID uuid.UUID,
	statusCode string,
	assignedTo *uuid.UUID,
	rfidValue string,
	notifyBySMS bool,
	notifyByEmail bool,
	allowEdit bool,
	installationCompletedAt *time.Time,
	provisioningCompletedAt *time.Time,
	activePaymentAttemptID *uuid.UUID,
	activeAppointmentAttemptID *uuid.UUID,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) Request {
	return Request{
		id:                         id,
		number:                     number,
		requestType:                requestType,
		applicant:                  applicant,
		vehicle:                    vehicle,
		locationID:                 locationID,
		statusCode:                 statusCode,
		assignedTo:                 assignedTo,
		rfidValue:                  rfidValue,
		notifyBySMS:                notifyBySMS,
		notifyByEmail:              notifyByEmail,
		allowEdit:                  allowEdit,
		installationCompletedAt:    installationCompletedAt,
		provisioningCompletedAt:    provisioningCompletedAt,
		activePaymentAttemptID:     activePaymentAttemptID,
		activeAppointmentAttemptID: activeAppointmentAttemptID,
		version:                    version,
		createdAt:                  createdAt,
		updatedAt:                  updatedAt,
	}
}

func (r Request) ID() uuid.UUID          { return r.id }
func (r Request) Number() string         { return r.number }
func (r Request) Type() Type             { return r.requestType }
func (r Request) Applicant() Applicant   { return r.applicant }
func (r Request) Vehicle() Vehicle       { return r.vehicle }
func (r Request) LocationID() uuid.UUID  { return r.locationID }
func (r Request) StatusCode() string     { return r.statusCode }
func (r Request) AssignedTo() *uuid.UUID { return r.assignedTo }
func (r Request) RFIDValue() string      { return r.rfidValue }
func (r Request) NotifyBySMS() bool      { return r.notifyBySMS }
func (r Request) NotifyByEmail() bool    { return r.notifyByEmail }
func (r Request) AllowEdit() bool        { return r.allowEdit }
func (r Request) Version() int64         { return r.version }
func (r Request) CreatedAt() time.Time   { return r.createdAt }
func (r Request) UpdatedAt() time.Time   { return r.updatedAt }
func (r Request) IsZero() bool           { return r.id == uuid.Nil && r.number == "" }

func (r Request) InstallationCompletedAt() *time.Time { return r.installationCompletedAt }
func (r Request) ProvisioningCompletedAt() *time.Time { return r.provisioningCompletedAt }

func (r Request) ActivePaymentAttemptID() *uuid.UUID     { return r.activePaymentAttemptID }
func (r Request) ActiveAppointmentAttemptID() *uuid.UUID { return r.activeAppointmentAttemptID }

func (r Request) WithStatusCode(code string) Request {
	r.statusCode = code
	return r
}

func (r Request) WithAssignedTo(officerID *uuid.UUID) Request {
	r.assignedTo = officerID
	return r
}

func (r Request) WithRFIDValue(value string) Request {
	r.rfidValue = strings.TrimSpace(value)
	return r
}

func (r Request) WithAllowEdit(v bool) Request {
	r.allowEdit = v
	return r
}

func (r Request) WithApplicant(a Applicant) Request {
	r.applicant = a
	return r
}

func (r Request) WithVehicle(v Vehicle) Request {
	r.vehicle = v
	return r
}

func (r Request) WithInstallationCompletedAt(t *time.Time) Request {
	r.installationCompletedAt = t
	return r
}

func (r Request) WithProvisioningCompletedAt(t *time.Time) Request {
	r.provisioningCompletedAt = t
	return r
}

func (r Request) WithActivePaymentAttemptID(id *uuid.UUID) Request {
	r.activePaymentAttemptID = id
	return r
}

func (r Request) WithActiveAppointmentAttemptID(id *uuid.UUID) Request {
	r.activeAppointmentAttemptID = id
	return r
}
