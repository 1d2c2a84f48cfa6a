package etc

import (
	"embed"
	"io/fs"

	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/sms"
	"github.com/iota-uz/etc-portal/modules/etc/presentation/controllers"
	"github.com/iota-uz/etc-portal/modules/etc/services"
	"github.com/iota-uz/etc-portal/pkg/application"
	"github.com/iota-uz/etc-portal/pkg/configuration"
	"github.com/iota-uz/etc-portal/pkg/eskiz"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	schemaFS, err := fs.Sub(migrationFiles, "infrastructure/persistence/schema")
	if err != nil {
		return err
	}
	app.RegisterMigrations(schemaFS)

	requests := persistence.NewRequestRepository()
	statuses := persistence.NewRequestStatusRepository()
	payments := persistence.NewPaymentAttemptRepository()
	appointments := persistence.NewAppointmentAttemptRepository()
	locations := persistence.NewLocationRepository()
	audit := persistence.NewAuditLogRepository()
	comments := persistence.NewCommentRepository()

	var notifier services.Notifier = services.NoopNotifier{}
	if conf.SMS.Enabled {
		notifier = sms.NewNotifier(eskiz.NewClient(
			eskiz.NewConfig(conf.SMS.Email, conf.SMS.Password, conf.SMS.Sender),
		))
	}

	lifecycle := services.NewLifecycleService(requests, statuses, audit, comments, app.EventBus())
	availability := services.NewAvailabilityService(locations, appointments, services.AvailabilityConfig{
		Location:        conf.Workflow.Location(),
		ServiceDuration: conf.Workflow.DefaultServiceDuration,
		SlotGranularity: conf.Workflow.DefaultSlotGranularity,
	})

	app.RegisterServices(
		lifecycle,
		availability,
		services.NewStatusService(statuses),
		services.NewPaymentService(requests, payments, lifecycle, audit, comments, app.EventBus(), services.PaymentServiceConfig{
			RejectionFlagThreshold: conf.Workflow.PaymentRejectionFlagThreshold,
			AllowSimulation:        conf.EnableTestEndpoints && !conf.IsProduction(),
		}),
		services.NewAppointmentService(requests, appointments, locations, availability, lifecycle, audit, notifier),
		services.NewRegistrationService(requests, statuses, payments, lifecycle, audit, comments, app.EventBus(), notifier, services.RegistrationConfig{
			PaymentRequired: conf.Workflow.PaymentRequired,
		}),
	)

	app.RegisterControllers(
		controllers.NewRegistrationAPIController(app),
		controllers.NewETCAdminController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "etc"
}
