package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry.
//
//	pending ──claim──▶ in_flight ──ok──▶ delivered
//	   ▲                  │
//	   └──fail, attempts──┤
//	                      └──fail, exhausted──▶ dead ──requeue──▶ pending
//
// An in_flight entry whose lease ran out is claimable again, which covers
// a processor that died mid-delivery.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxInFlight  OutboxStatus = "in_flight"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxDead      OutboxStatus = "dead"
)

// DefaultOutboxMaxAttempts bounds deliveries before an entry is dead-lettered
const DefaultOutboxMaxAttempts = 8

// Backoff is a capped exponential delay schedule
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultOutboxBackoff spaces redeliveries from 2s up to 15m
var DefaultOutboxBackoff = Backoff{Base: 2 * time.Second, Max: 15 * time.Minute}

// Delay returns the wait before attempt n+1 after n failures (n ≥ 1)
func (b Backoff) Delay(failures int) time.Duration {
	return RetryBackoff(failures, b.Base, b.Max)
}

// RetryBackoff returns base·2^(attempt-1) capped at limit. attempt starts at 1.
func RetryBackoff(attempt int, base, limit time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d <= 0 || d >= limit {
			return limit
		}
	}
	return min(d, limit)
}

// OutboxEntry is a domain event written in the same transaction as the
// state change that raised it. The processor delivers it at least once.
type OutboxEntry struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID    `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string       `gorm:"type:varchar(100);not null;index"`
	AggregateID   uuid.UUID    `gorm:"type:uuid;not null"`
	AggregateType string       `gorm:"type:varchar(100);not null"`
	Payload       []byte       `gorm:"not null"`
	Status        OutboxStatus `gorm:"type:varchar(20);not null;index:idx_outbox_due,priority:1"`
	Attempts      int          `gorm:"not null;default:0"`
	MaxAttempts   int          `gorm:"not null;default:8"`
	AvailableAt   time.Time    `gorm:"not null;index:idx_outbox_due,priority:2"`
	LeaseUntil    *time.Time
	LastError     string `gorm:"type:text"`
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (OutboxEntry) TableName() string {
	return "outbox_entries"
}

// NewOutboxEntry wraps an encoded event, available immediately
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxPending,
		MaxAttempts:   DefaultOutboxMaxAttempts,
		AvailableAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Delivered closes the entry
func (e *OutboxEntry) Delivered(now time.Time) {
	e.Status = OutboxDelivered
	e.DeliveredAt = &now
	e.LeaseUntil = nil
	e.LastError = ""
	e.UpdatedAt = now
}

// Failed counts a failed attempt. The entry goes back to pending after the
// backoff delay, or dies when its attempts are spent. It reports whether
// the entry died.
func (e *OutboxEntry) Failed(cause error, now time.Time, backoff Backoff) bool {
	e.Attempts++
	e.LastError = cause.Error()
	e.LeaseUntil = nil
	e.UpdatedAt = now
	if e.Attempts >= e.MaxAttempts {
		e.Status = OutboxDead
		return true
	}
	e.Status = OutboxPending
	e.AvailableAt = now.Add(backoff.Delay(e.Attempts))
	return false
}

// Requeue revives a dead entry with a fresh attempt budget
func (e *OutboxEntry) Requeue(now time.Time) error {
	if e.Status != OutboxDead {
		return NewInvalidStateError("outbox entry %s is %s, only dead entries can be requeued", e.ID, e.Status)
	}
	e.Status = OutboxPending
	e.Attempts = 0
	e.AvailableAt = now
	e.LastError = ""
	e.UpdatedAt = now
	return nil
}

func (e *OutboxEntry) String() string {
	return fmt.Sprintf("%s %s (%s, attempt %d/%d)", e.EventType, e.EventID, e.Status, e.Attempts, e.MaxAttempts)
}

// OutboxRepository stores outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error

	// ClaimDue leases up to limit entries that are pending and available,
	// or in flight with an expired lease, marking them in_flight until
	// now+lease. Entries leased by another processor are skipped.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*OutboxEntry, error)

	Update(ctx context.Context, entry *OutboxEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)

	// FindDead pages through dead entries, most recent failure first. page starts at 1.
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)

	// PurgeDelivered deletes entries delivered before the cutoff
	PurgeDelivered(ctx context.Context, before time.Time) (int64, error)

	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
