package marketplace

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// SalesChannelStatus represents the status of a sales channel
type SalesChannelStatus string

const (
	SalesChannelStatusActive   SalesChannelStatus = "active"
	SalesChannelStatusInactive SalesChannelStatus = "inactive"
)

// SalesChannel is a marketplace storefront of a tenant. It carries the
// pricing policy and the procurement behaviour for orders placed there.
type SalesChannel struct {
	shared.TenantAggregateRoot
	Code         string                           `gorm:"type:varchar(50);not null"`
	Name         string                           `gorm:"type:varchar(200);not null"`
	Marketplace  string                           `gorm:"type:varchar(50);not null"`
	Status       SalesChannelStatus               `gorm:"type:varchar(20);not null;default:'active'"`
	PricingRules datatypes.JSONType[PricingRules] `gorm:"not null"`
	// RulesVersion increases on every rules change and is stamped on price links
	RulesVersion int `gorm:"not null;default:1"`
	// AutoConfirm sends purchase orders as soon as a procurement run creates them
	AutoConfirm bool `gorm:"not null;default:false"`
	// ProcurementSchedule is a cron expression; empty disables scheduled runs
	ProcurementSchedule  string     `gorm:"type:varchar(100)"`
	PreferredWarehouseID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (SalesChannel) TableName() string {
	return "sales_channels"
}

// NewSalesChannel creates a channel with validated rules
func NewSalesChannel(tenantID uuid.UUID, code, name, marketplaceName string, rules PricingRules) (*SalesChannel, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewValidationError("channel code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("channel name cannot be empty")
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &SalesChannel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		Marketplace:         marketplaceName,
		Status:              SalesChannelStatusActive,
		PricingRules:        datatypes.NewJSONType(rules),
		RulesVersion:        1,
	}, nil
}

// Rules returns the pricing rules
func (c *SalesChannel) Rules() PricingRules {
	return c.PricingRules.Data()
}

// UpdatePricingRules validates and stores new rules, bumping RulesVersion
func (c *SalesChannel) UpdatePricingRules(rules PricingRules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	c.PricingRules = datatypes.NewJSONType(rules)
	c.RulesVersion++
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	c.AddDomainEvent(NewPricingRulesChangedEvent(c))
	return nil
}

// SetProcurementSchedule validates a standard 5-field cron expression
func (c *SalesChannel) SetProcurementSchedule(spec string, autoConfirm bool) error {
	spec = strings.TrimSpace(spec)
	if spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return shared.NewValidationError("invalid procurement schedule %q: %v", spec, err)
		}
	}
	c.ProcurementSchedule = spec
	c.AutoConfirm = autoConfirm
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// IsActive reports whether the channel is active
func (c *SalesChannel) IsActive() bool {
	return c.Status == SalesChannelStatusActive
}
