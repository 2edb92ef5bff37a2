package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantEntity holds the identity and audit columns of a tenant-owned row.
// Records saved together with a parent, such as purchase order lines and
// stock movements, embed it directly. Aggregate roots embed it through
// TenantAggregateRoot.
type TenantEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenantEntity creates a tenant-owned entity with a fresh ID
func NewTenantEntity(tenantID uuid.UUID) TenantEntity {
	now := time.Now()
	return TenantEntity{
		ID:        uuid.New(),
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt.
func (e *TenantEntity) Touch() {
	e.UpdatedAt = time.Now()
}
