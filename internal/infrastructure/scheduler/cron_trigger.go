package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
)

// Target identifies what a job works on
type Target struct {
	TenantID uuid.UUID
	ID       uuid.UUID
}

// ChannelSchedule is a sales channel with its procurement cron expression
type ChannelSchedule struct {
	Target
	Spec string
}

// TargetProvider lists what the cron trigger schedules, across tenants
type TargetProvider interface {
	ActiveSuppliers(ctx context.Context) ([]Target, error)
	ScheduledChannels(ctx context.Context) ([]ChannelSchedule, error)
}

// RepositoryTargets reads targets from the supplier and channel repositories
type RepositoryTargets struct {
	Suppliers partner.SupplierRepository
	Channels  marketplace.SalesChannelRepository
}

// ActiveSuppliers lists every active supplier
func (r RepositoryTargets) ActiveSuppliers(ctx context.Context) ([]Target, error) {
	suppliers, err := r.Suppliers.FindActive(ctx, uuid.Nil)
	if err != nil {
		return nil, err
	}
	targets := make([]Target, 0, len(suppliers))
	for _, s := range suppliers {
		targets = append(targets, Target{TenantID: s.TenantID, ID: s.ID})
	}
	return targets, nil
}

// ScheduledChannels lists active channels that have a procurement schedule
func (r RepositoryTargets) ScheduledChannels(ctx context.Context) ([]ChannelSchedule, error) {
	channels, err := r.Channels.FindActive(ctx, uuid.Nil)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelSchedule, 0, len(channels))
	for _, c := range channels {
		if c.ProcurementSchedule == "" {
			continue
		}
		out = append(out, ChannelSchedule{Target: Target{TenantID: c.TenantID, ID: c.ID}, Spec: c.ProcurementSchedule})
	}
	return out, nil
}

// CronTriggerConfig holds the cron expressions of the trigger
type CronTriggerConfig struct {
	// SyncSpec fires a catalog sync for every active supplier
	SyncSpec string
	// TickSpec is how often channel procurement schedules are evaluated
	TickSpec string
	// StatusPollSpec fires supplier order status polling; empty disables it
	StatusPollSpec string
	Location       *time.Location
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		SyncSpec:       "0 */4 * * *",
		TickSpec:       "* * * * *",
		StatusPollSpec: "*/15 * * * *",
		Location:       time.UTC,
	}
}

// CronTrigger turns cron schedules into scheduler jobs. Channel schedules
// live on the channel records, so they are re-read on every tick and a
// channel fires when its next activation after the previous tick has passed.
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	targets   TargetProvider
	logger    *zap.Logger

	cron     *cron.Cron
	mu       sync.Mutex
	lastTick time.Time
	parsed   map[string]cron.Schedule
	running  bool
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, targets TargetProvider, logger *zap.Logger) *CronTrigger {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		targets:   targets,
		logger:    logger,
		parsed:    make(map[string]cron.Schedule),
	}
}

// Start registers the cron entries and starts the cron runner
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	runner := cron.New(
		cron.WithLocation(c.config.Location),
		cron.WithLogger(cronLogger{c.logger.Sugar()}),
		cron.WithChain(cron.Recover(cronLogger{c.logger.Sugar()})),
	)
	if _, err := runner.AddFunc(c.config.SyncSpec, func() { c.TriggerSync(ctx) }); err != nil {
		return fmt.Errorf("sync schedule %q: %w", c.config.SyncSpec, err)
	}
	if _, err := runner.AddFunc(c.config.TickSpec, func() { c.Tick(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("procurement tick schedule %q: %w", c.config.TickSpec, err)
	}
	if c.config.StatusPollSpec != "" {
		if _, err := runner.AddFunc(c.config.StatusPollSpec, func() { c.TriggerStatusPoll() }); err != nil {
			return fmt.Errorf("status poll schedule %q: %w", c.config.StatusPollSpec, err)
		}
	}

	c.lastTick = time.Now()
	c.cron = runner
	c.running = true
	runner.Start()

	c.logger.Info("Cron trigger started",
		zap.String("sync", c.config.SyncSpec),
		zap.String("tick", c.config.TickSpec),
		zap.String("status_poll", c.config.StatusPollSpec),
	)
	return nil
}

// Stop stops the cron runner and waits for running entries
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	runner := c.cron
	c.mu.Unlock()

	select {
	case <-runner.Stop().Done():
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerSync submits a sync job for every active supplier
func (c *CronTrigger) TriggerSync(ctx context.Context) {
	suppliers, err := c.targets.ActiveSuppliers(ctx)
	if err != nil {
		c.logger.Error("Failed to list suppliers for sync", zap.Error(err))
		return
	}
	for _, s := range suppliers {
		if _, err := c.scheduler.Enqueue(JobKindSupplierSync, s.TenantID, s.ID, "schedule"); err != nil {
			c.logger.Error("Failed to schedule supplier sync",
				zap.String("tenant_id", s.TenantID.String()),
				zap.String("supplier_id", s.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// TriggerStatusPoll submits one status polling job for all tenants
func (c *CronTrigger) TriggerStatusPoll() {
	if _, err := c.scheduler.Enqueue(JobKindStatusPoll, uuid.Nil, uuid.Nil, "schedule"); err != nil {
		c.logger.Error("Failed to schedule status poll", zap.Error(err))
	}
}

// Tick evaluates every channel schedule against the window since the
// previous tick and submits the channels that are due. It returns the
// channels submitted.
func (c *CronTrigger) Tick(ctx context.Context, now time.Time) []ChannelSchedule {
	c.mu.Lock()
	since := c.lastTick
	c.lastTick = now
	c.mu.Unlock()

	channels, err := c.targets.ScheduledChannels(ctx)
	if err != nil {
		c.logger.Error("Failed to list channel schedules", zap.Error(err))
		return nil
	}

	var due []ChannelSchedule
	for _, ch := range channels {
		sched, err := c.schedule(ch.Spec)
		if err != nil {
			c.logger.Warn("Invalid channel schedule",
				zap.String("channel_id", ch.ID.String()),
				zap.String("spec", ch.Spec),
				zap.Error(err),
			)
			continue
		}
		if next := sched.Next(since.In(c.config.Location)); next.After(now) {
			continue
		}
		if _, err := c.scheduler.Enqueue(JobKindProcurement, ch.TenantID, ch.ID, "schedule"); err != nil {
			c.logger.Error("Failed to schedule procurement run",
				zap.String("tenant_id", ch.TenantID.String()),
				zap.String("channel_id", ch.ID.String()),
				zap.Error(err),
			)
			continue
		}
		due = append(due, ch)
	}
	return due
}

func (c *CronTrigger) schedule(spec string) (cron.Schedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.parsed[spec]; ok {
		return s, nil
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}
	c.parsed[spec] = s
	return s, nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
