package partner

import (
	"context"

	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// WarehouseService handles warehouse-related business operations
type WarehouseService struct {
	scope uow.TransactionScope
}

// NewWarehouseService creates a new WarehouseService
func NewWarehouseService(scope uow.TransactionScope) *WarehouseService {
	return &WarehouseService{scope: scope}
}

// Create creates a physical warehouse. Virtual warehouses only come into
// existence with their supplier.
func (s *WarehouseService) Create(ctx context.Context, tenantID uuid.UUID, req CreateWarehouseRequest) (*partner.Warehouse, error) {
	repos := s.scope.Repositories()
	exists, err := repos.Warehouses().ExistsByCode(ctx, tenantID, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Warehouse with this code already exists")
	}

	warehouse, err := partner.NewPhysicalWarehouse(tenantID, req.Code, req.Name, req.Priority)
	if err != nil {
		return nil, err
	}
	if err := repos.Warehouses().Save(ctx, warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}

// GetByID retrieves a warehouse by ID
func (s *WarehouseService) GetByID(ctx context.Context, tenantID, warehouseID uuid.UUID) (*partner.Warehouse, error) {
	return s.scope.Repositories().Warehouses().FindByIDForTenant(ctx, tenantID, warehouseID)
}

// List returns every warehouse of a tenant, highest priority first
func (s *WarehouseService) List(ctx context.Context, tenantID uuid.UUID) ([]partner.Warehouse, error) {
	return s.scope.Repositories().Warehouses().FindAllForTenant(ctx, tenantID)
}

// SetPriority changes the reservation preference of a warehouse
func (s *WarehouseService) SetPriority(ctx context.Context, tenantID, warehouseID uuid.UUID, priority int) (*partner.Warehouse, error) {
	return s.mutate(ctx, tenantID, warehouseID, func(w *partner.Warehouse) { w.SetPriority(priority) })
}

// Deactivate excludes a warehouse from reservation
func (s *WarehouseService) Deactivate(ctx context.Context, tenantID, warehouseID uuid.UUID) (*partner.Warehouse, error) {
	return s.mutate(ctx, tenantID, warehouseID, func(w *partner.Warehouse) { w.Deactivate() })
}

func (s *WarehouseService) mutate(ctx context.Context, tenantID, warehouseID uuid.UUID, fn func(*partner.Warehouse)) (*partner.Warehouse, error) {
	repos := s.scope.Repositories()
	warehouse, err := repos.Warehouses().FindByIDForTenant(ctx, tenantID, warehouseID)
	if err != nil {
		return nil, err
	}
	fn(warehouse)
	if err := repos.Warehouses().Save(ctx, warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}
