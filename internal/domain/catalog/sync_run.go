package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// SyncRunStatus is the lifecycle of one catalog import
type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	// SyncRunStatusPartial means the run finished with per-item failures
	SyncRunStatusPartial SyncRunStatus = "partial"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

// SyncCounters tallies the outcome of a reconciliation
type SyncCounters struct {
	Processed int `gorm:"not null;default:0" json:"processed"`
	Created   int `gorm:"not null;default:0" json:"created"`
	Updated   int `gorm:"not null;default:0" json:"updated"`
	Unchanged int `gorm:"not null;default:0" json:"unchanged"`
	Retired   int `gorm:"not null;default:0" json:"retired"`
	Failed    int `gorm:"not null;default:0" json:"failed"`
}

// SyncRun records one pull-normalize-reconcile pass for a supplier
type SyncRun struct {
	shared.TenantAggregateRoot
	SupplierID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Trigger      string        `gorm:"type:varchar(20);not null"`
	Status       SyncRunStatus `gorm:"type:varchar(20);not null"`
	StartedAt    time.Time     `gorm:"not null"`
	FinishedAt   *time.Time
	SyncCounters `gorm:"embedded"`
	Errors       datatypes.JSONSlice[shared.ItemError]
	SnapshotKey  string `gorm:"type:varchar(500)"`
	FailReason   string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRun) TableName() string {
	return "sync_runs"
}

// NewSyncRun starts a run
func NewSyncRun(tenantID, supplierID uuid.UUID, trigger string) *SyncRun {
	return &SyncRun{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SupplierID:          supplierID,
		Trigger:             trigger,
		Status:              SyncRunStatusRunning,
		StartedAt:           time.Now(),
		Errors:              datatypes.JSONSlice[shared.ItemError]{},
	}
}

// RecordError counts a failed item and keeps its error in the bounded list
func (r *SyncRun) RecordError(ref string, err error) {
	r.Processed++
	r.Failed++
	r.Errors = shared.AppendItemError(r.Errors, ref, err)
}

// Finish closes the run. Any per-item failure makes it partial.
func (r *SyncRun) Finish() {
	now := time.Now()
	r.FinishedAt = &now
	r.UpdatedAt = now
	if r.Failed > 0 {
		r.Status = SyncRunStatusPartial
	} else {
		r.Status = SyncRunStatusCompleted
	}
	r.AddDomainEvent(NewSyncRunFinishedEvent(r))
}

// Abort closes the run as failed
func (r *SyncRun) Abort(reason error) {
	now := time.Now()
	r.FinishedAt = &now
	r.UpdatedAt = now
	r.Status = SyncRunStatusFailed
	if reason != nil {
		r.FailReason = reason.Error()
	}
	r.AddDomainEvent(NewSyncRunFinishedEvent(r))
}
