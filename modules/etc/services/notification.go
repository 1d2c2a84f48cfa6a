package services

import (
	"context"

	"github.com/iota-uz/etc-portal/modules/etc/domain/aggregates/request"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/appointmentattempt"
	"github.com/iota-uz/etc-portal/modules/etc/domain/entities/location"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/metrics"
)

// Notifier delivers customer-facing notifications. Every call is best-effort:
// a delivery failure never fails the workflow operation that triggered it.
type Notifier interface {
	RequestSubmitted(ctx context.Context, req request.Request) error
	StatusChanged(ctx context.Context, req request.Request, from, to string) error
	AppointmentBooked(ctx context.Context, req request.Request, attempt appointmentattempt.AppointmentAttempt, loc location.Location) error
}

// NoopNotifier is the default when no SMS provider is configured.
type NoopNotifier struct{}

func (NoopNotifier) RequestSubmitted(context.Context, request.Request) error { return nil }
func (NoopNotifier) StatusChanged(context.Context, request.Request, string, string) error {
	return nil
}
func (NoopNotifier) AppointmentBooked(context.Context, request.Request, appointmentattempt.AppointmentAttempt, location.Location) error {
	return nil
}

// notifyBestEffort runs fn and swallows the error after logging and counting
// it.
func notifyBestEffort(ctx context.Context, channel string, fn func() error) {
	if err := fn(); err != nil {
		composables.UseLogger(ctx).WithError(err).
			WithField("channel", channel).
			Error("notification delivery failed")
		metrics.NotificationFailures.Inc()
	}
}
