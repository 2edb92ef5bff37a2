package marketplace

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeSalesChannel = "SalesChannel"
	AggregateTypePriceLink    = "PriceLink"
)

// Event type constants
const (
	EventTypePricingRulesChanged = "PricingRulesChanged"
	EventTypePriceChanged        = "PriceChanged"
)

// PricingRulesChangedEvent triggers a tenant-wide price recalculation for the channel
type PricingRulesChangedEvent struct {
	shared.EventHeader
	ChannelID    uuid.UUID `json:"channel_id"`
	RulesVersion int       `json:"rules_version"`
}

// NewPricingRulesChangedEvent creates a new PricingRulesChangedEvent
func NewPricingRulesChangedEvent(c *SalesChannel) *PricingRulesChangedEvent {
	return &PricingRulesChangedEvent{
		EventHeader:  shared.NewEventHeader(EventTypePricingRulesChanged, AggregateTypeSalesChannel, c.ID, c.TenantID),
		ChannelID:    c.ID,
		RulesVersion: c.RulesVersion,
	}
}

// PriceChangedEvent is published when a channel price changes
type PriceChangedEvent struct {
	shared.EventHeader
	ProductID uuid.UUID        `json:"product_id"`
	ChannelID uuid.UUID        `json:"channel_id"`
	OldPrice  *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice  decimal.Decimal  `json:"new_price"`
	Currency  string           `json:"currency"`
}

// NewPriceChangedEvent creates a new PriceChangedEvent
func NewPriceChangedEvent(l *PriceLink, old decimal.Decimal, hadOld bool) *PriceChangedEvent {
	e := &PriceChangedEvent{
		EventHeader: shared.NewEventHeader(EventTypePriceChanged, AggregateTypePriceLink, l.ID, l.TenantID),
		ProductID:   l.ProductID,
		ChannelID:   l.ChannelID,
		NewPrice:    *l.Price,
		Currency:    string(l.Currency),
	}
	if hadOld {
		e.OldPrice = &old
	}
	return e
}
