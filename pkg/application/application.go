package application

import (
	"io/fs"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/etc-portal/pkg/eventbus"
)

// Controller is the unit of HTTP surface a module contributes.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module wires its services and controllers into the application at startup.
type Module interface {
	Name() string
	Register(app Application) error
}

type Application interface {
	Pool() *pgxpool.Pool
	EventBus() eventbus.EventBus
	Logger() *logrus.Logger

	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}

	RegisterControllers(controllers ...Controller)
	Controllers() []Controller

	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	Middleware() []mux.MiddlewareFunc

	RegisterMigrations(fsys fs.FS)
	Migrations() []fs.FS

	RegisterModule(module Module) error
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:     opts.Pool,
		eventBus: opts.EventBus,
		logger:   opts.Logger,
		services: map[reflect.Type]interface{}{},
	}
}

type application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	services    map[reflect.Type]interface{}
	controllers []Controller
	middleware  []mux.MiddlewareFunc
	migrations  []fs.FS
}

func (a *application) Pool() *pgxpool.Pool          { return a.pool }
func (a *application) EventBus() eventbus.EventBus  { return a.eventBus }
func (a *application) Logger() *logrus.Logger       { return a.logger }
func (a *application) Controllers() []Controller    { return a.controllers }
func (a *application) Middleware() []mux.MiddlewareFunc {
	return a.middleware
}
func (a *application) Migrations() []fs.FS { return a.migrations }

func (a *application) RegisterServices(services ...interface{}) {
	for _, service := range services {
		a.services[reflect.TypeOf(service).Elem()] = service
	}
}

// Service returns the registered instance whose type matches the given value.
// Panics on a missing registration since that is a wiring bug, not a runtime
// condition.
func (a *application) Service(service interface{}) interface{} {
	svc, ok := a.services[reflect.TypeOf(service)]
	if !ok {
		panic("service " + reflect.TypeOf(service).String() + " not registered")
	}
	return svc
}

func (a *application) RegisterControllers(controllers ...Controller) {
	a.controllers = append(a.controllers, controllers...)
}

func (a *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	a.middleware = append(a.middleware, middleware...)
}

func (a *application) RegisterMigrations(fsys fs.FS) {
	a.migrations = append(a.migrations, fsys)
}

func (a *application) RegisterModule(module Module) error {
	a.logger.Infof("registering module %s", module.Name())
	return module.Register(a)
}
