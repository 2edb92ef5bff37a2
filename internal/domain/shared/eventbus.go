package shared

import "context"

// EventHandler reacts to delivered outbox events. EventTypes lists the
// types it wants; nil means all of them.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher hands events to in-process handlers. The outbox processor
// is its only caller; a returned error leaves the entry for retry.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventRecorder appends domain events to the durable outbox as part of the
// surrounding unit of work. Events recorded in a transaction that rolls back
// are never delivered.
type EventRecorder interface {
	Record(ctx context.Context, events ...DomainEvent) error
}
