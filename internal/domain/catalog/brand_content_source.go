package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// BrandContentSource names the supplier authoritative for a brand's
// descriptive data within a tenant.
type BrandContentSource struct {
	shared.TenantEntity
	Brand      string    `gorm:"type:varchar(200);not null"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (BrandContentSource) TableName() string {
	return "brand_content_sources"
}

// NormalizeBrand makes brand comparison case and space insensitive
func NormalizeBrand(brand string) string {
	return strings.ToUpper(strings.Join(strings.Fields(brand), " "))
}

// NewBrandContentSource creates a brand to supplier mapping
func NewBrandContentSource(tenantID uuid.UUID, brand string, supplierID uuid.UUID) (*BrandContentSource, error) {
	brand = NormalizeBrand(brand)
	if brand == "" {
		return nil, shared.NewValidationError("brand cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("supplier is required")
	}
	return &BrandContentSource{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Brand:        brand,
		SupplierID:   supplierID,
	}, nil
}
