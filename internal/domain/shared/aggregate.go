package shared

import (
	"github.com/google/uuid"
)

// TenantAggregateRoot is a tenant-owned consistency boundary. Version counts
// committed mutations. Events raised by a mutation wait in the aggregate
// until the unit of work moves them to the outbox with the row itself.
type TenantAggregateRoot struct {
	TenantEntity
	Version int `gorm:"not null;default:1"`

	pending []DomainEvent
	// stored is the version the row held when last read or written
	stored int
}

// NewTenantAggregateRoot creates a version 1 aggregate for tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		TenantEntity: NewTenantEntity(tenantID),
		Version:      1,
	}
}

// IncrementVersion records one mutation
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// StoredVersion is the version of the row as last read or written. Zero
// means the aggregate has not been stored yet.
func (a *TenantAggregateRoot) StoredVersion() int {
	return a.stored
}

// MarkStored records that the row now holds the current version
func (a *TenantAggregateRoot) MarkStored() {
	a.stored = a.Version
}

// AddDomainEvent queues an event for the next RecordEvents
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
