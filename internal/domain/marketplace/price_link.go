package marketplace

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// PriceLink is the published price of a product on a sales channel
// together with the trail explaining how it was derived.
type PriceLink struct {
	shared.TenantAggregateRoot
	ProductID    uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_price_link_product_channel,priority:1"`
	ChannelID    uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_price_link_product_channel,priority:2;index"`
	Price        *decimal.Decimal     `gorm:"type:decimal(18,2)"`
	Currency     valueobject.Currency `gorm:"type:varchar(3)"`
	OfferID      *uuid.UUID           `gorm:"type:uuid"`
	Trail        datatypes.JSONSlice[string]
	RulesVersion int `gorm:"not null;default:0"`
	CalculatedAt *time.Time
}

// TableName returns the table name for GORM
func (PriceLink) TableName() string {
	return "price_links"
}

// NewPriceLink creates an unpriced link
func NewPriceLink(tenantID, productID, channelID uuid.UUID) *PriceLink {
	return &PriceLink{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		ChannelID:           channelID,
		Trail:               datatypes.JSONSlice[string]{},
	}
}

// CurrentPrice returns the published price if there is one
func (l *PriceLink) CurrentPrice() (decimal.Decimal, bool) {
	if l.Price == nil {
		return decimal.Zero, false
	}
	return *l.Price, true
}

// ApplyCalculation stores a new result. The event is emitted only when the
// price or its currency changed.
func (l *PriceLink) ApplyCalculation(price decimal.Decimal, currency valueobject.Currency, offerID *uuid.UUID, trail []string, rulesVersion int, at time.Time) bool {
	old, had := l.CurrentPrice()
	changed := !had || !old.Equal(price) || l.Currency != currency
	l.Price = &price
	l.Currency = currency
	l.OfferID = offerID
	l.Trail = trail
	l.RulesVersion = rulesVersion
	l.CalculatedAt = &at
	l.UpdatedAt = at
	if changed {
		l.IncrementVersion()
		l.AddDomainEvent(NewPriceChangedEvent(l, old, had))
	}
	return changed
}

// KeepPrice records a calculation that left the price untouched
func (l *PriceLink) KeepPrice(trail []string, rulesVersion int, at time.Time) {
	l.Trail = trail
	l.RulesVersion = rulesVersion
	l.CalculatedAt = &at
	l.UpdatedAt = at
}
