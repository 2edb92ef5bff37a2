// Package app assembles the commerce middleware. An App owns the database
// pool, the coordination backends, the outbox machinery and the background
// scheduler; every service is built from it and nothing is global.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/vde76ru/module-sub000/internal/application/catalogsync"
	appevent "github.com/vde76ru/module-sub000/internal/application/event"
	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	apppartner "github.com/vde76ru/module-sub000/internal/application/partner"
	apppricing "github.com/vde76ru/module-sub000/internal/application/pricing"
	appprocurement "github.com/vde76ru/module-sub000/internal/application/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/cache"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
	"github.com/vde76ru/module-sub000/internal/infrastructure/event"
	"github.com/vde76ru/module-sub000/internal/infrastructure/migration"
	"github.com/vde76ru/module-sub000/internal/infrastructure/persistence"
	"github.com/vde76ru/module-sub000/internal/infrastructure/scheduler"
	"github.com/vde76ru/module-sub000/internal/infrastructure/storage"
	"github.com/vde76ru/module-sub000/internal/infrastructure/supplier"
	"github.com/vde76ru/module-sub000/internal/infrastructure/telemetry"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/handler"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/middleware"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/router"

	"github.com/gin-gonic/gin"
)

// App is the process handle
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Database *persistence.Database
	Backends *cache.Backends
	Registry *supplier.Registry
	// Telemetry hands out no-op instruments when export is disabled
	Telemetry *telemetry.Providers
	Scope     *persistence.GormTransactionScope
	Outbox    *event.GormOutboxRepository

	Ledger      *appinventory.StockLedger
	Suppliers   *apppartner.SupplierService
	Warehouses  *apppartner.WarehouseService
	Sync        *catalogsync.Service
	Procurement *appprocurement.Service
	Pricing     *apppricing.Service
	Channels    *apppricing.ChannelService
	OutboxAdmin *appevent.OutboxService

	Bus       *event.InMemoryEventBus
	Processor *event.OutboxProcessor
	Scheduler *scheduler.Scheduler
	Cron      *scheduler.CronTrigger

	relay   *event.KafkaRelay
	closers []func() error
	started bool
}

// Option customizes New
type Option func(*options)

type options struct {
	skipMigrations bool
	version        string
}

// WithoutMigrations leaves the schema untouched on startup
func WithoutMigrations() Option {
	return func(o *options) {
		o.skipMigrations = true
	}
}

// WithVersion sets the service version reported to the telemetry collector
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

// New opens every resource named by the configuration and builds the
// services. On error the resources opened so far are released.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (a *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	a = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	// Fail before opening anything when a configured connector is unknown
	a.Registry, err = supplier.NewDefaultRegistry(cfg, log.Named("supplier"))
	if err != nil {
		return nil, err
	}

	a.Telemetry, err = telemetry.NewProviders(ctx, &cfg.Telemetry, log.Named("telemetry"), o.version)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return a.Telemetry.Shutdown(context.Background()) })
	log = a.Telemetry.WrapLogger(log)
	a.Logger = log

	a.Database, err = persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Database.Close)
	log.Info("Database connected", zap.String("driver", a.Database.Driver))
	if a.Telemetry.Enabled() && cfg.Telemetry.DBTracing {
		system := "postgresql"
		if a.Database.Driver == "sqlite" {
			system = "sqlite"
		}
		tracing := telemetry.NewDBTracing(system, cfg.Telemetry.SlowQueryThreshold, log.Named("telemetry"))
		if err = tracing.Register(a.Database.DB); err != nil {
			return nil, fmt.Errorf("database tracing: %w", err)
		}
	}

	if !o.skipMigrations {
		if err = a.migrate(ctx); err != nil {
			return nil, err
		}
	}

	a.Backends, err = cache.NewBackends(ctx, &cfg.Redis,
		cache.WithLogger(log.Named("cache")),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Backends.Close)

	var syncOpts []catalogsync.Option
	if cfg.Storage.Enabled {
		archive, aerr := a.snapshotArchive(ctx)
		if aerr != nil {
			return nil, aerr
		}
		syncOpts = append(syncOpts, catalogsync.WithSnapshotArchive(archive))
	}

	rateTable, err := cfg.Pricing.RateTable()
	if err != nil {
		return nil, err
	}
	rates, err := apppricing.NewStaticRates(cfg.Pricing.ReferenceCurrency, rateTable)
	if err != nil {
		return nil, err
	}
	locale, err := language.Parse(cfg.Sync.Locale)
	if err != nil {
		return nil, fmt.Errorf("sync locale: %w", err)
	}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	a.Outbox = event.NewGormOutboxRepository(a.Database.DB)
	a.Scope = persistence.NewGormTransactionScope(a.Database.DB, event.NewOutboxPublisher(serializer))

	a.Ledger = appinventory.NewStockLedger(a.Scope, log.Named("inventory"),
		appinventory.WithPartialFallback(cfg.Procurement.AllowPartialReservation))
	a.Suppliers = apppartner.NewSupplierService(a.Scope, a.Registry, log.Named("partner"))
	a.Warehouses = apppartner.NewWarehouseService(a.Scope)
	a.Sync = catalogsync.NewService(a.Scope, a.Registry, a.Ledger, a.Backends.Locker, catalogsync.Config{
		PageSize: cfg.Sync.PageSize,
		MaxPages: cfg.Sync.MaxPages,
		LockTTL:  cfg.Sync.RunLockTTL,
		Locale:   locale,
	}, log.Named("sync"), syncOpts...)
	a.Procurement = appprocurement.NewService(a.Scope, a.Registry, a.Ledger, a.Backends.Locker, rates,
		appprocurement.Config{LockTTL: cfg.Procurement.RunLockTTL}, log.Named("procurement"))
	a.Pricing = apppricing.NewService(a.Scope, rates, log.Named("pricing"))
	a.Channels = apppricing.NewChannelService(a.Scope, log.Named("pricing"))
	a.OutboxAdmin = appevent.NewOutboxService(a.Outbox, log.Named("outbox"))

	a.Bus = event.NewInMemoryEventBus(log.Named("bus"))
	for _, h := range []struct {
		name    string
		handler shared.EventHandler
	}{
		{"pricing.offer_changed", apppricing.NewOfferChangedHandler(a.Pricing, log)},
		{"pricing.rules_changed", apppricing.NewRulesChangedHandler(a.Pricing, log)},
	} {
		wrapped := event.NewIdempotentHandler(h.name, h.handler, a.Backends.Idempotency, log)
		a.Bus.Subscribe(wrapped, h.handler.EventTypes()...)
	}
	if a.Telemetry.Enabled() {
		metrics, merr := telemetry.NewCommerceMetrics(a.Telemetry.Meter(telemetry.TracerName), log.Named("metrics"))
		if merr != nil {
			return nil, fmt.Errorf("commerce metrics: %w", merr)
		}
		// redelivered entries must not count twice
		wrapped := event.NewIdempotentHandler("telemetry.metrics", metrics, a.Backends.Idempotency, log)
		a.Bus.Subscribe(wrapped, metrics.EventTypes()...)
	}

	var relay event.Relay
	if cfg.Kafka.Enabled {
		a.relay = event.NewKafkaRelay(event.KafkaRelayConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			ClientID:     cfg.Kafka.ClientID,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, log.Named("kafka"))
		a.closers = append(a.closers, a.relay.Close)
		relay = a.relay
	}
	a.Processor = event.NewOutboxProcessor(a.Outbox, a.Bus, relay, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		MaxAttempts:      cfg.Event.MaxAttempts,
		Lease:            cfg.Event.Lease,
		Backoff:          shared.Backoff{Base: cfg.Event.BaseBackoff, Max: cfg.Event.MaxBackoff},
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		CleanupInterval:  cfg.Event.CleanupInterval,
	}, log.Named("outbox"))

	a.Scheduler = scheduler.NewScheduler(scheduler.SchedulerConfig{
		Workers:       cfg.Scheduler.Workers,
		QueueSize:     cfg.Scheduler.QueueSize,
		JobTimeout:    cfg.Scheduler.JobTimeout,
		RetryAttempts: cfg.Scheduler.RetryAttempts,
		RetryDelay:    cfg.Scheduler.RetryDelay,
	}, a.JobRouter(), log.Named("scheduler"))

	statusPoll := cfg.Scheduler.StatusPollCron
	if statusPoll == "-" {
		statusPoll = ""
	}
	repos := a.Scope.Repositories()
	a.Cron = scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
		SyncSpec:       cfg.Scheduler.SyncCron,
		TickSpec:       cfg.Scheduler.ProcurementTickCron,
		StatusPollSpec: statusPoll,
		Location:       time.UTC,
	}, a.Scheduler, scheduler.RepositoryTargets{
		Suppliers: repos.Suppliers(),
		Channels:  repos.Channels(),
	}, log.Named("cron"))

	return a, nil
}

// JobRouter maps scheduler job kinds to the services that run them. Every
// job runs under its own span.
func (a *App) JobRouter() scheduler.Router {
	return scheduler.Router{
		scheduler.JobKindProcurement: traced("procurement.run", func(ctx context.Context, job *scheduler.Job) error {
			_, err := a.Procurement.Run(ctx, job.TenantID, job.TargetID, job.Trigger)
			return err
		}),
		scheduler.JobKindSupplierSync: traced("catalogsync.sync", func(ctx context.Context, job *scheduler.Job) error {
			_, err := a.Sync.Sync(ctx, job.TenantID, job.TargetID, job.Trigger)
			return err
		}),
		scheduler.JobKindStatusPoll: traced("procurement.refresh_sent", func(ctx context.Context, _ *scheduler.Job) error {
			result, err := a.Procurement.RefreshSentOrders(ctx)
			if err != nil {
				return err
			}
			if result.Failed > 0 {
				a.Logger.Warn("Status polling finished with failures",
					zap.Int("succeeded", result.Succeeded),
					zap.Int("failed", result.Failed))
			}
			return nil
		}),
	}
}

func traced(name string, fn scheduler.JobExecutorFunc) scheduler.JobExecutorFunc {
	return func(ctx context.Context, job *scheduler.Job) error {
		ctx, span := telemetry.StartSpan(ctx, name,
			telemetry.Attr(telemetry.AttrTenantID, job.TenantID),
			telemetry.Attr(telemetry.AttrTargetID, job.TargetID),
			telemetry.Attr(telemetry.AttrTrigger, job.Trigger),
		)
		defer span.End()
		err := fn(ctx, job)
		telemetry.RecordError(span, err)
		return err
	}
}

// Start launches the outbox processor and, when enabled, the scheduler
// with its cron trigger
func (a *App) Start(ctx context.Context) error {
	if err := a.Bus.Start(ctx); err != nil {
		return err
	}
	if a.Config.Event.ProcessorEnabled {
		if err := a.Processor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}
	}
	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		if err := a.Cron.Start(ctx); err != nil {
			return fmt.Errorf("start cron trigger: %w", err)
		}
	}
	a.started = true
	return nil
}

// Stop halts the background workers, newest first
func (a *App) Stop(ctx context.Context) error {
	if !a.started {
		return nil
	}
	a.started = false
	var errs []error
	if a.Config.Scheduler.Enabled {
		errs = append(errs, a.Cron.Stop(ctx), a.Scheduler.Stop(ctx))
	}
	if a.Config.Event.ProcessorEnabled {
		errs = append(errs, a.Processor.Stop(ctx))
	}
	errs = append(errs, a.Bus.Stop(ctx))
	return errors.Join(errs...)
}

// Close releases the resources opened by New in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// HTTPHandler builds the gin engine serving the API
func (a *App) HTTPHandler(version string) *gin.Engine {
	var limiter *middleware.RateLimiter
	if a.Config.HTTP.TenantRateLimit > 0 {
		limiter = middleware.NewRateLimiter(a.Config.HTTP.TenantRateLimit, a.Config.HTTP.TenantBurst)
	}
	var traceService string
	if a.Telemetry != nil && a.Telemetry.Enabled() {
		traceService = a.Config.Telemetry.ServiceName
	}
	return router.NewEngine(router.Config{
		Logger:       a.Logger,
		Version:      version,
		MaxBodyBytes: a.Config.HTTP.MaxBodyBytes,
		Limiter:      limiter,
		Checks:       a.HealthChecks(),
		TraceService: traceService,
	},
		handler.NewSupplierHandler(a.Suppliers, a.Sync),
		handler.NewWarehouseHandler(a.Warehouses),
		handler.NewInventoryHandler(a.Ledger),
		handler.NewChannelHandler(a.Channels, a.Pricing),
		handler.NewOrderHandler(a.Procurement),
		handler.NewProcurementHandler(a.Procurement),
		handler.NewOutboxHandler(a.OutboxAdmin),
	)
}

// HealthChecks returns the readiness probes of the owned resources
func (a *App) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": a.Database.Ping,
	}
	if a.Backends.Client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Backends.Client.Ping(ctx).Err()
		}
	}
	return checks
}

// migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations on a dedicated connection since the migrator closes the one
// it is given; sqlite is created from the gorm models.
func (a *App) migrate(ctx context.Context) error {
	if a.Database.Driver != "postgres" {
		return persistence.AutoMigrate(ctx, a.Database.DB)
	}
	db, err := sql.Open("postgres", a.Config.Database.DSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	m, err := migration.New(db, "", a.Logger.Named("migrate"))
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func (a *App) snapshotArchive(ctx context.Context) (*storage.S3SnapshotArchive, error) {
	archive, err := storage.NewS3SnapshotArchive(ctx, &a.Config.Storage, storage.WithLogger(a.Logger.Named("storage")))
	if err != nil {
		return nil, fmt.Errorf("snapshot archive: %w", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}
