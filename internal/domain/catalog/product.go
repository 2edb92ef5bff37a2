package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a tenant-owned catalog entry identified by its internal SKU.
// Products are deactivated, never deleted.
type Product struct {
	shared.TenantAggregateRoot
	SKU         string           `gorm:"type:varchar(100);not null"`
	Name        string           `gorm:"type:varchar(500);not null"`
	Description string           `gorm:"type:text"`
	Brand       string           `gorm:"type:varchar(200);index"`
	Category    string           `gorm:"type:varchar(200)"`
	Barcode     string           `gorm:"type:varchar(20);index"`
	ImageURL    string           `gorm:"type:varchar(1000)"`
	WeightKg    *decimal.Decimal `gorm:"type:decimal(18,6)"`
	VolumeM3    *decimal.Decimal `gorm:"type:decimal(18,9)"`
	Divisible   bool             `gorm:"not null;default:false"`
	Status      ProductStatus    `gorm:"type:varchar(20);not null;default:'active'"`
	// ContentSupplierID is the supplier whose data last populated the descriptive fields
	ContentSupplierID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// ProductContent is the descriptive part of a product that sync may overwrite
type ProductContent struct {
	Name        string
	Description string
	Brand       string
	Category    string
	Barcode     string
	ImageURL    string
	WeightKg    *decimal.Decimal
	VolumeM3    *decimal.Decimal
	Divisible   bool
}

// NormalizeSKU trims and uppercases a SKU
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// NewProduct creates an active product
func NewProduct(tenantID uuid.UUID, sku string, content ProductContent) (*Product, error) {
	sku = NormalizeSKU(sku)
	if sku == "" {
		return nil, shared.NewValidationError("product SKU cannot be empty")
	}
	if len(sku) > 100 {
		return nil, shared.NewValidationError("product SKU cannot exceed 100 characters")
	}
	if strings.TrimSpace(content.Name) == "" {
		return nil, shared.NewValidationError("product name cannot be empty")
	}

	p := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 sku,
		Status:              ProductStatusActive,
	}
	p.setContent(content)
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// ApplyContent overwrites the descriptive fields with data from the given
// supplier. It reports whether anything changed.
func (p *Product) ApplyContent(content ProductContent, supplierID uuid.UUID) bool {
	if strings.TrimSpace(content.Name) == "" {
		content.Name = p.Name
	}
	if p.sameContent(content) && p.ContentSupplierID != nil && *p.ContentSupplierID == supplierID {
		return false
	}
	p.setContent(content)
	p.ContentSupplierID = &supplierID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductContentUpdatedEvent(p, supplierID))
	return true
}

func (p *Product) setContent(c ProductContent) {
	p.Name = strings.TrimSpace(c.Name)
	p.Description = c.Description
	p.Brand = c.Brand
	p.Category = c.Category
	p.Barcode = c.Barcode
	p.ImageURL = c.ImageURL
	p.WeightKg = c.WeightKg
	p.VolumeM3 = c.VolumeM3
	p.Divisible = c.Divisible
}

func (p *Product) sameContent(c ProductContent) bool {
	return p.Name == strings.TrimSpace(c.Name) &&
		p.Description == c.Description &&
		p.Brand == c.Brand &&
		p.Category == c.Category &&
		p.Barcode == c.Barcode &&
		p.ImageURL == c.ImageURL &&
		equalDecimalPtr(p.WeightKg, c.WeightKg) &&
		equalDecimalPtr(p.VolumeM3, c.VolumeM3) &&
		p.Divisible == c.Divisible
}

// Deactivate hides the product from procurement and pricing
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewInvalidStateError("product %s is already inactive", p.SKU)
	}
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p))
	return nil
}

// Activate re-enables an inactive product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewInvalidStateError("product %s is already active", p.SKU)
	}
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p))
	return nil
}

// IsActive returns true if product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

func equalDecimalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
