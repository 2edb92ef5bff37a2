package partner

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// SupplierService handles supplier records and brand content sources
type SupplierService struct {
	scope    uow.TransactionScope
	registry integration.ConnectorRegistry
	logger   *zap.Logger
}

// NewSupplierService creates a new SupplierService
func NewSupplierService(scope uow.TransactionScope, registry integration.ConnectorRegistry, log *zap.Logger) *SupplierService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SupplierService{scope: scope, registry: registry, logger: log}
}

// Create stores a supplier together with its virtual warehouse. The
// connector type must be one the registry knows.
func (s *SupplierService) Create(ctx context.Context, tenantID uuid.UUID, req CreateSupplierRequest) (*partner.Supplier, error) {
	connectorType := integration.ConnectorType(req.ConnectorType)
	if !s.registry.Supports(connectorType) {
		return nil, shared.NewConfigurationError("unknown connector type %q", req.ConnectorType)
	}

	var supplier *partner.Supplier
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		exists, err := repos.Suppliers().ExistsByCode(ctx, tenantID, req.Code)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Supplier with this code already exists")
		}

		if supplier, err = partner.NewSupplier(tenantID, req.Code, req.Name, connectorType, req.Settings); err != nil {
			return err
		}
		warehouse, err := partner.NewVirtualWarehouse(tenantID, supplier)
		if err != nil {
			return err
		}
		supplier.AttachVirtualWarehouse(warehouse.ID)

		if err := repos.Suppliers().Save(ctx, supplier); err != nil {
			return err
		}
		return repos.Warehouses().Save(ctx, warehouse)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Supplier created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", supplier.Code),
		zap.String("connector_type", supplier.ConnectorType.String()))
	return supplier, nil
}

// Get reads one supplier
func (s *SupplierService) Get(ctx context.Context, tenantID, supplierID uuid.UUID) (*partner.Supplier, error) {
	return s.scope.Repositories().Suppliers().FindByIDForTenant(ctx, tenantID, supplierID)
}

// List returns every supplier of a tenant
func (s *SupplierService) List(ctx context.Context, tenantID uuid.UUID) ([]partner.Supplier, error) {
	return s.scope.Repositories().Suppliers().FindAllForTenant(ctx, tenantID)
}

// UpdateSettings replaces the connector settings
func (s *SupplierService) UpdateSettings(ctx context.Context, tenantID, supplierID uuid.UUID, settings partner.ConnectorSettings) (*partner.Supplier, error) {
	repos := s.scope.Repositories()
	supplier, err := repos.Suppliers().FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	if err := supplier.UpdateSettings(settings); err != nil {
		return nil, err
	}
	if err := repos.Suppliers().Save(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// Deactivate stops syncing and ordering from a supplier. Its virtual
// warehouse leaves reservation with it.
func (s *SupplierService) Deactivate(ctx context.Context, tenantID, supplierID uuid.UUID) (*partner.Supplier, error) {
	var supplier *partner.Supplier
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if supplier, err = repos.Suppliers().FindByIDForTenant(ctx, tenantID, supplierID); err != nil {
			return err
		}
		supplier.Deactivate()
		if err := repos.Suppliers().Save(ctx, supplier); err != nil {
			return err
		}
		warehouse, err := repos.Warehouses().FindVirtualBySupplier(ctx, tenantID, supplierID)
		if err != nil {
			if shared.CodeOf(err) == shared.CodeNotFound {
				return nil
			}
			return err
		}
		warehouse.Deactivate()
		return repos.Warehouses().Save(ctx, warehouse)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Supplier deactivated", zap.String("tenant_id", tenantID.String()), zap.String("code", supplier.Code))
	return supplier, nil
}

// SetBrandSource makes a supplier the master content source of a brand,
// replacing any previous mapping.
func (s *SupplierService) SetBrandSource(ctx context.Context, tenantID uuid.UUID, brand string, supplierID uuid.UUID) (*catalog.BrandContentSource, error) {
	var source *catalog.BrandContentSource
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if _, err := repos.Suppliers().FindByIDForTenant(ctx, tenantID, supplierID); err != nil {
			return err
		}
		existing, err := repos.ContentSources().FindByBrand(ctx, tenantID, catalog.NormalizeBrand(brand))
		switch {
		case err == nil:
			existing.SupplierID = supplierID
			source = existing
		case shared.CodeOf(err) == shared.CodeNotFound:
			if source, err = catalog.NewBrandContentSource(tenantID, brand, supplierID); err != nil {
				return err
			}
		default:
			return err
		}
		return repos.ContentSources().Save(ctx, source)
	})
	if err != nil {
		return nil, err
	}
	return source, nil
}

// BrandSources lists the brand mappings of a tenant
func (s *SupplierService) BrandSources(ctx context.Context, tenantID uuid.UUID) ([]catalog.BrandContentSource, error) {
	return s.scope.Repositories().ContentSources().FindAll(ctx, tenantID)
}
