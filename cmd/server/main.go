package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/iota-uz/etc-portal/internal/server"
	"github.com/iota-uz/etc-portal/modules"
	"github.com/iota-uz/etc-portal/modules/etc/infrastructure/persistence"
	"github.com/iota-uz/etc-portal/modules/etc/seed"
	"github.com/iota-uz/etc-portal/pkg/application"
	"github.com/iota-uz/etc-portal/pkg/authz"
	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/configuration"
	"github.com/iota-uz/etc-portal/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	authzService, err := authz.NewService(authz.Config{
		ModelPath:  conf.Authz.ModelPath,
		PolicyPath: conf.Authz.PolicyPath,
		Mode:       authz.ParseMode(conf.Authz.Mode),
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("failed to initialize authorization: %v", err)
	}
	authz.Setup(authzService)

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if err := runMigrations(app, pool); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	seedCtx := composables.WithPool(context.Background(), pool)
	if err := seed.Statuses(seedCtx, persistence.NewRequestStatusRepository()); err != nil {
		log.Fatalf("failed to seed statuses: %v", err)
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.StartWithContext(runCtx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// runMigrations applies every embedded schema each module registered.
func runMigrations(app application.Application, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	for _, fsys := range app.Migrations() {
		provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
		if err != nil {
			return err
		}
		if _, err := provider.Up(context.Background()); err != nil {
			return err
		}
	}
	return nil
}
