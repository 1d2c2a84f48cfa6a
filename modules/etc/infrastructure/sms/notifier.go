package sms

import (
	"context"
	"fmt"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/pkg/eskiz"
)

// Notifier sends customer SMS through the Eskiz gateway.
type Notifier struct {
	client *eskiz.Client
}

func NewNotifier(client *eskiz.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) RequestSubmitted(ctx context.Context, req request.Request) error {
	return n.client.SendSMS(ctx, req.Applicant().Phone, fmt.Sprintf(
		"Your ETC tag registration %s has been received. Track it with this number.",
		req.Number(),
	))
}

func (n *Notifier) StatusChanged(ctx context.Context, req request.Request, from, to string) error {
	return n.client.SendSMS(ctx, req.Applicant().Phone, fmt.Sprintf(
		"Registration %s status changed to %s.",
		req.Number(), to,
	))
}

func (n *Notifier) AppointmentBooked(
	ctx context.Context,
	req request.Request,
	attempt appointmentattempt.AppointmentAttempt,
	loc location.Location,
) error {
	return n.client.SendSMS(ctx, req.Applicant().Phone, fmt.Sprintf(
		"Installation appointment for %s: %s at %s, %s.",
		req.Number(),
		attempt.ScheduledStartAt().Format("02 Jan 2006 15:04"),
		loc.Name,
		loc.Address,
	))
}
