package procurement

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// CreateOverride excludes an order item from automatic procurement
func (s *Service) CreateOverride(ctx context.Context, tenantID, itemID uuid.UUID, reason, actor string) (*procurement.ManualOverride, error) {
	var override *procurement.ManualOverride
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		items, err := repos.OrderItems().FindByIDs(ctx, tenantID, []uuid.UUID{itemID})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return shared.NewNotFoundError("order item")
		}
		if _, err := repos.Overrides().FindByOrderItem(ctx, tenantID, itemID); err == nil {
			return shared.ErrAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if override, err = procurement.NewManualOverride(&items[0], reason, actor); err != nil {
			return err
		}
		return repos.Overrides().Save(ctx, override)
	})
	if err != nil {
		return nil, err
	}
	return override, nil
}

// ensureOverride creates the override of an item unless one exists
func (s *Service) ensureOverride(ctx context.Context, repos uow.Repositories, item *procurement.OrderItem, reason, actor string) error {
	_, err := repos.Overrides().FindByOrderItem(ctx, item.TenantID, item.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	override, err := procurement.NewManualOverride(item, reason, actor)
	if err != nil {
		return err
	}
	return repos.Overrides().Save(ctx, override)
}

// DeleteOverride returns an item to automatic procurement
func (s *Service) DeleteOverride(ctx context.Context, tenantID, overrideID uuid.UUID) error {
	repos := s.scope.Repositories()
	if _, err := repos.Overrides().FindByIDForTenant(ctx, tenantID, overrideID); err != nil {
		return err
	}
	return repos.Overrides().Delete(ctx, tenantID, overrideID)
}

// Overrides lists the overrides of a tenant
func (s *Service) Overrides(ctx context.Context, tenantID uuid.UUID) ([]procurement.ManualOverride, error) {
	return s.scope.Repositories().Overrides().FindAll(ctx, tenantID)
}
