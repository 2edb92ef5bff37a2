package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Relay forwards a stored outbox entry to an external broker
type Relay interface {
	Forward(ctx context.Context, entry *shared.OutboxEntry) error
}

// OutboxProcessorConfig tunes the delivery loop
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxAttempts overrides the per-entry budget when positive
	MaxAttempts int
	// Lease is how long a claimed entry stays invisible to other processors
	Lease            time.Duration
	Backoff          shared.Backoff
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxAttempts:      shared.DefaultOutboxMaxAttempts,
		Lease:            time.Minute,
		Backoff:          shared.DefaultOutboxBackoff,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor leases due outbox entries and delivers them to the relay
// and the in-process bus. A failed delivery goes back to the queue after a
// backoff delay; an entry that runs out of attempts is dead-lettered.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	relay      Relay
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor. relay may be nil.
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	relay Relay,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	def := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.Lease <= 0 {
		config.Lease = def.Lease
	}
	if config.Backoff.Base <= 0 || config.Backoff.Max < config.Backoff.Base {
		config.Backoff = def.Backoff
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		relay:      relay,
		serializer: serializer,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Start starts the background processing
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx, p.config.PollInterval, func(ctx context.Context) { p.ProcessOnce(ctx) })

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.loop(ctx, p.config.CleanupInterval, p.cleanup)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("relay", p.relay != nil),
	)
	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	defer p.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// ProcessOnce claims one batch of due entries and delivers them. It
// returns the number delivered.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	claimed, err := p.repo.ClaimDue(ctx, p.now(), p.config.Lease, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to claim outbox entries", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, entry := range claimed {
		if p.processEntry(ctx, entry) {
			delivered++
		}
	}
	return delivered
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) bool {
	if p.config.MaxAttempts > 0 {
		entry.MaxAttempts = p.config.MaxAttempts
	}

	if err := p.deliver(ctx, entry); err != nil {
		dead := entry.Failed(err, p.now(), p.config.Backoff)
		fields := []zap.Field{
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("attempts", entry.Attempts),
			zap.Error(err),
		}
		if dead {
			p.logger.Warn("outbox entry dead-lettered", fields...)
		} else {
			p.logger.Error("outbox delivery failed",
				append(fields, zap.Time("available_at", entry.AvailableAt))...)
		}
		if updateErr := p.repo.Update(ctx, entry); updateErr != nil {
			p.logger.Error("failed to record delivery failure", zap.Error(updateErr))
		}
		return false
	}

	entry.Delivered(p.now())
	if err := p.repo.Update(ctx, entry); err != nil {
		// the lease expires and the entry is delivered again
		p.logger.Error("failed to mark entry delivered",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

// deliver hands the entry to the relay first so a broker outage is
// retried before in-process handlers see the event
func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) error {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	if p.relay != nil {
		if err := p.relay.Forward(ctx, entry); err != nil {
			return err
		}
	}
	return p.bus.Publish(ctx, event)
}

// Retry puts a dead-lettered entry back in the queue
func (p *OutboxProcessor) Retry(ctx context.Context, id uuid.UUID) error {
	entry, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.Requeue(p.now()); err != nil {
		return err
	}
	return p.repo.Update(ctx, entry)
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := p.now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.PurgeDelivered(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to purge delivered entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("purged delivered outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
