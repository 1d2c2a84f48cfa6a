package request

import (
	"strings"

	"github.com/google/uuid"
)

// CreateDTO is the public submission payload, discriminated on RequestType.
type CreateDTO struct {
	RequestType   string    `json:"requestType" validate:"required,oneof=NEW_INDIVIDUAL NEW_COMPANY"`
	FirstName     string    `json:"firstName" validate:"required_if=RequestType NEW_INDIVIDUAL,max=100"`
	LastName      string    `json:"lastName" validate:"required_if=RequestType NEW_INDIVIDUAL,max=100"`
	NationalID    string    `json:"nationalId" validate:"required_if=RequestType NEW_INDIVIDUAL,max=32"`
	CompanyName   string    `json:"companyName" validate:"required_if=RequestType NEW_COMPANY,max=200"`
	CompanyTIN    string    `json:"companyTin" validate:"required_if=RequestType NEW_COMPANY,max=32"`
	Phone         string    `json:"phone" validate:"required,max=20"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Plate         string    `json:"plate" validate:"required,max=16"`
	VehicleTypeID uuid.UUID `json:"vehicleTypeId" validate:"required"`
	LocationID    uuid.UUID `json:"locationId" validate:"required"`
	NotifyBySMS   bool      `json:"notifyBySms"`
	NotifyByEmail bool      `json:"notifyByEmail"`
}

func (d *CreateDTO) Normalize() {
	d.RequestType = strings.ToUpper(strings.TrimSpace(d.RequestType))
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.NationalID = strings.TrimSpace(d.NationalID)
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.CompanyTIN = strings.TrimSpace(d.CompanyTIN)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)
	d.Plate = strings.ToUpper(strings.TrimSpace(d.Plate))
}

func (d *CreateDTO) ToApplicant() Applicant {
	return Applicant{
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		NationalID:  d.NationalID,
		Phone:       d.Phone,
		Email:       d.Email,
		CompanyName: d.CompanyName,
		CompanyTIN:  d.CompanyTIN,
	}
}

// UpdateDTO carries customer-editable fields, accepted only while the request
// allows edits.
type UpdateDTO struct {
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Email     string `json:"email" validate:"omitempty,email"`
	Plate     string `json:"plate" validate:"omitempty,max=16"`
}
