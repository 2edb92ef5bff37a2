package procurement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// RunStatus is the lifecycle of one procurement pass
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RunCounters tallies the outcome of a procurement pass. Reserved counts
// the collected items that own stock served at least in part.
type RunCounters struct {
	Collected     int `gorm:"not null;default:0" json:"collected"`
	Reserved      int `gorm:"not null;default:0" json:"reserved"`
	Ordered       int `gorm:"not null;default:0" json:"ordered"`
	Unfulfillable int `gorm:"not null;default:0" json:"unfulfillable"`
	OrdersCreated int `gorm:"not null;default:0" json:"orders_created"`
	OrdersSent    int `gorm:"not null;default:0" json:"orders_sent"`
	OrdersFailed  int `gorm:"not null;default:0" json:"orders_failed"`
}

// Run records one procurement pass over a channel. BatchID tags every
// purchase order the pass created.
type Run struct {
	shared.TenantAggregateRoot
	ChannelID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BatchID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Trigger     string    `gorm:"type:varchar(20);not null"`
	Status      RunStatus `gorm:"type:varchar(20);not null"`
	StartedAt   time.Time `gorm:"not null"`
	FinishedAt  *time.Time
	RunCounters `gorm:"embedded"`
	Errors      datatypes.JSONSlice[shared.ItemError]
	FailReason  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Run) TableName() string {
	return "procurement_runs"
}

// NewRun starts a pass with a fresh batch id
func NewRun(tenantID, channelID uuid.UUID, trigger string) *Run {
	return &Run{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ChannelID:           channelID,
		BatchID:             uuid.New(),
		Trigger:             trigger,
		Status:              RunStatusRunning,
		StartedAt:           time.Now(),
		Errors:              datatypes.JSONSlice[shared.ItemError]{},
	}
}

// RecordError keeps a per-item or per-order failure
func (r *Run) RecordError(ref string, err error) {
	r.Errors = shared.AppendItemError(r.Errors, ref, err)
}

// Finish closes the run
func (r *Run) Finish() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.FinishedAt = &now
	r.UpdatedAt = now
	r.AddDomainEvent(NewProcurementRunFinishedEvent(r))
}

// Abort closes the run as failed
func (r *Run) Abort(reason error) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.UpdatedAt = now
	if reason != nil {
		r.FailReason = reason.Error()
	}
	r.AddDomainEvent(NewProcurementRunFinishedEvent(r))
}
