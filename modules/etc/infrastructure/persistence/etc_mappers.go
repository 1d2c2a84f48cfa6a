package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/auditlog"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/comment"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/paymentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/requeststatus"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence/models"
)

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseUUIDPtr(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := parseUUID(*s)
	return &id
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toDomainRequestStatus(row *models.RequestStatus) requeststatus.RequestStatus {
	return requeststatus.Hydrate(
		row.Code,
		row.Label,
		requeststatus.Category(row.Category),
		row.OrderIndex,
		row.IsTerminal,
		row.IsEditable,
		row.Active,
	)
}

func toDBRequestStatus(s requeststatus.RequestStatus) *models.RequestStatus {
	return &models.RequestStatus{
		Code:       s.Code(),
		Label:      s.Label(),
		Category:   string(s.Category()),
		OrderIndex: s.OrderIndex(),
		IsTerminal: s.IsTerminal(),
		IsEditable: s.IsEditable(),
		Active:     s.Active(),
	}
}

func toDomainRequest(row *models.Request) request.Request {
	return request.Hydrate(
		parseUUID(row.ID),
		row.Number,
		request.Type(row.RequestType),
		request.Applicant{
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			NationalID:  row.NationalID,
			Phone:       row.Phone,
			Email:       row.Email,
			CompanyName: row.CompanyName,
			CompanyTIN:  row.CompanyTIN,
		},
		request.Vehicle{
			Plate:         row.Plate,
			VehicleTypeID: parseUUID(row.VehicleTypeID),
		},
		parseUUID(row.LocationID),
		row.StatusCode,
		parseUUIDPtr(row.AssignedTo),
		row.RFIDValue,
		row.NotifyBySMS,
		row.NotifyByEmail,
		row.AllowEdit,
		row.InstallationCompletedAt,
		row.ProvisioningCompletedAt,
		parseUUIDPtr(row.ActivePaymentAttemptID),
		parseUUIDPtr(row.ActiveAppointmentAttemptID),
		row.Version,
		row.CreatedAt,
		row.UpdatedAt,
	)
}

func toDBRequest(r request.Request) *models.Request {
	applicant := r.Applicant()
	vehicle := r.Vehicle()
	return &models.Request{
		ID:                         r.ID().String(),
		Number:                     r.Number(),
		RequestType:                string(r.Type()),
		FirstName:                  applicant.FirstName,
		LastName:                   applicant.LastName,
		NationalID:                 applicant.NationalID,
		Phone:                      applicant.Phone,
		Email:                      applicant.Email,
		CompanyName:                applicant.CompanyName,
		CompanyTIN:                 applicant.CompanyTIN,
		Plate:                      vehicle.Plate,
		VehicleTypeID:              vehicle.VehicleTypeID.String(),
		LocationID:                 r.LocationID().String(),
		StatusCode:                 r.StatusCode(),
		AssignedTo:                 uuidPtrString(r.AssignedTo()),
		RFIDValue:                  r.RFIDValue(),
		NotifyBySMS:                r.NotifyBySMS(),
		NotifyByEmail:              r.NotifyByEmail(),
		AllowEdit:                  r.AllowEdit(),
		InstallationCompletedAt:    r.InstallationCompletedAt(),
		ProvisioningCompletedAt:    r.ProvisioningCompletedAt(),
		ActivePaymentAttemptID:     uuidPtrString(r.ActivePaymentAttemptID()),
		ActiveAppointmentAttemptID: uuidPtrString(r.ActiveAppointmentAttemptID()),
		Version:                    r.Version(),
		CreatedAt:                  r.CreatedAt(),
		UpdatedAt:                  r.UpdatedAt(),
	}
}

func toDomainPaymentAttempt(row *models.PaymentAttempt) (paymentattempt.PaymentAttempt, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return paymentattempt.PaymentAttempt{}, err
	}
	return paymentattempt.Hydrate(
		parseUUID(row.ID),
		parseUUID(row.RequestID),
		row.AttemptNo,
		paymentattempt.Method(row.Method),
		amount,
		paymentattempt.Status(row.Status),
		row.Reference,
		row.DeclaredAt,
		parseUUIDPtr(row.VerifiedBy),
		row.VerifiedAt,
		row.RejectionReason,
		row.CreatedAt,
		row.UpdatedAt,
	), nil
}

func toDBPaymentAttempt(a paymentattempt.PaymentAttempt) *models.PaymentAttempt {
	return &models.PaymentAttempt{
		ID:              a.ID().String(),
		RequestID:       a.RequestID().String(),
		AttemptNo:       a.AttemptNo(),
		Method:          string(a.Method()),
		Amount:          a.Amount().String(),
		Status:          string(a.Status()),
		Reference:       a.Reference(),
		DeclaredAt:      a.DeclaredAt(),
		VerifiedBy:      uuidPtrString(a.VerifiedBy()),
		VerifiedAt:      a.VerifiedAt(),
		RejectionReason: a.RejectionReason(),
		CreatedAt:       a.CreatedAt(),
		UpdatedAt:       a.UpdatedAt(),
	}
}

func toDomainAppointmentAttempt(row *models.AppointmentAttempt) appointmentattempt.AppointmentAttempt {
	return appointmentattempt.Hydrate(
		parseUUID(row.ID),
		parseUUID(row.RequestID),
		row.AttemptNo,
		parseUUID(row.LocationID),
		row.ScheduledStartAt,
		row.ScheduledEndAt,
		appointmentattempt.Mode(row.Mode),
		appointmentattempt.Status(row.Status),
		row.CreatedAt,
		row.UpdatedAt,
	)
}

func toDBAppointmentAttempt(a appointmentattempt.AppointmentAttempt) *models.AppointmentAttempt {
	return &models.AppointmentAttempt{
		ID:               a.ID().String(),
		RequestID:        a.RequestID().String(),
		AttemptNo:        a.AttemptNo(),
		LocationID:       a.LocationID().String(),
		ScheduledStartAt: a.ScheduledStartAt(),
		ScheduledEndAt:   a.ScheduledEndAt(),
		Mode:             string(a.Mode()),
		Status:           string(a.Status()),
		CreatedAt:        a.CreatedAt(),
		UpdatedAt:        a.UpdatedAt(),
	}
}

func toDomainAuditEntry(row *models.AuditLogEntry) *auditlog.Entry {
	return &auditlog.Entry{
		ID:        parseUUID(row.ID),
		RequestID: parseUUID(row.RequestID),
		Action:    auditlog.Action(row.Action),
		OldData:   row.OldData,
		NewData:   row.NewData,
		ActorID:   parseUUIDPtr(row.ActorID),
		CreatedAt: row.CreatedAt,
	}
}

func toDomainComment(row *models.Comment) *comment.Comment {
	return &comment.Comment{
		ID:         parseUUID(row.ID),
		RequestID:  parseUUID(row.RequestID),
		Text:       row.Text,
		Visibility: comment.Visibility(row.Visibility),
		AuthorID:   parseUUIDPtr(row.AuthorID),
		CreatedAt:  row.CreatedAt,
	}
}

func toDomainLocation(row *models.Location) location.Location {
	return location.Location{
		ID:      parseUUID(row.ID),
		Name:    row.Name,
		Address: row.Address,
		Phone:   row.Phone,
		Active:  row.Active,
	}
}

func toDomainDaySchedule(row *models.LocationSchedule) location.DaySchedule {
	return location.DaySchedule{
		Weekday:        time.Weekday(row.Weekday),
		Open:           row.Open,
		OpensAtMinute:  row.OpensAtMinute,
		ClosesAtMinute: row.ClosesAtMinute,
	}
}

func toDomainCapacityRule(row *models.LocationCapacityRule) location.CapacityRule {
	return location.CapacityRule{
		StartMinute: row.StartMinute,
		EndMinute:   row.EndMinute,
		Capacity:    row.Capacity,
	}
}

func toDomainCalendarBlock(row *models.LocationCalendarBlock) location.CalendarBlock {
	return location.CalendarBlock{
		ID:          parseUUID(row.ID),
		LocationID:  parseUUID(row.LocationID),
		Date:        row.Date,
		Kind:        location.BlockKind(row.Kind),
		StartMinute: row.StartMinute,
		EndMinute:   row.EndMinute,
		Reason:      row.Reason,
	}
}
