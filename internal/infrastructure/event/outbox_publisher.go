package event

import (
	"context"

	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// OutboxPublisher encodes events and inserts them through the caller's
// transaction, so they commit or roll back with the aggregate rows.
type OutboxPublisher struct {
	serializer *EventSerializer
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx fails without writing anything if any event is unregistered
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(ev, payload))
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
