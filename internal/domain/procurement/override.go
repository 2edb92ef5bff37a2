package procurement

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// ManualOverride excludes an order item from automatic procurement
type ManualOverride struct {
	shared.TenantEntity
	OrderItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Reason      string    `gorm:"type:varchar(500);not null"`
	Actor       string    `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ManualOverride) TableName() string {
	return "procurement_overrides"
}

// NewManualOverride creates an exclusion for item
func NewManualOverride(item *OrderItem, reason, actor string) (*ManualOverride, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError("override reason is required")
	}
	if len(reason) > 500 {
		return nil, shared.NewValidationError("override reason cannot exceed 500 characters")
	}
	return &ManualOverride{
		TenantEntity: shared.NewTenantEntity(item.TenantID),
		OrderItemID:  item.ID,
		ProductID:    item.ProductID,
		Reason:       reason,
		Actor:        actor,
	}, nil
}
