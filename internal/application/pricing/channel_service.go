package pricing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
)

// CreateChannelRequest describes a new sales channel
type CreateChannelRequest struct {
	Code                 string                   `json:"code" binding:"required,max=50"`
	Name                 string                   `json:"name" binding:"required,max=200"`
	Marketplace          string                   `json:"marketplace" binding:"required,max=50"`
	Rules                marketplace.PricingRules `json:"pricing_rules"`
	ProcurementSchedule  string                   `json:"procurement_schedule"`
	AutoConfirm          bool                     `json:"auto_confirm"`
	PreferredWarehouseID *uuid.UUID               `json:"preferred_warehouse_id"`
}

// ChannelService manages sales channels and their pricing rules
type ChannelService struct {
	scope  uow.TransactionScope
	logger *zap.Logger
}

// NewChannelService creates a channel service
func NewChannelService(scope uow.TransactionScope, log *zap.Logger) *ChannelService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChannelService{scope: scope, logger: log}
}

// Create validates and stores a channel
func (s *ChannelService) Create(ctx context.Context, tenantID uuid.UUID, req CreateChannelRequest) (*marketplace.SalesChannel, error) {
	channel, err := marketplace.NewSalesChannel(tenantID, req.Code, req.Name, req.Marketplace, req.Rules)
	if err != nil {
		return nil, err
	}
	if err := channel.SetProcurementSchedule(req.ProcurementSchedule, req.AutoConfirm); err != nil {
		return nil, err
	}
	channel.PreferredWarehouseID = req.PreferredWarehouseID
	if err := s.scope.Repositories().Channels().Save(ctx, channel); err != nil {
		return nil, err
	}
	s.logger.Info("Sales channel created", zap.String("tenant_id", tenantID.String()), zap.String("code", channel.Code))
	return channel, nil
}

// UpdateRules replaces the pricing rules. The change event triggers a
// recalculation of the channel through the outbox.
func (s *ChannelService) UpdateRules(ctx context.Context, tenantID, channelID uuid.UUID, rules marketplace.PricingRules) (*marketplace.SalesChannel, error) {
	var channel *marketplace.SalesChannel
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if channel, err = repos.Channels().FindByIDForTenant(ctx, tenantID, channelID); err != nil {
			return err
		}
		if err := channel.UpdatePricingRules(rules); err != nil {
			return err
		}
		if err := repos.Channels().Save(ctx, channel); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, channel)
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// SetSchedule changes the procurement cron expression and auto-confirm flag
func (s *ChannelService) SetSchedule(ctx context.Context, tenantID, channelID uuid.UUID, spec string, autoConfirm bool) (*marketplace.SalesChannel, error) {
	repos := s.scope.Repositories()
	channel, err := repos.Channels().FindByIDForTenant(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if err := channel.SetProcurementSchedule(spec, autoConfirm); err != nil {
		return nil, err
	}
	if err := repos.Channels().Save(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

// Get reads one channel
func (s *ChannelService) Get(ctx context.Context, tenantID, channelID uuid.UUID) (*marketplace.SalesChannel, error) {
	return s.scope.Repositories().Channels().FindByIDForTenant(ctx, tenantID, channelID)
}

// List returns the active channels of a tenant
func (s *ChannelService) List(ctx context.Context, tenantID uuid.UUID) ([]marketplace.SalesChannel, error) {
	return s.scope.Repositories().Channels().FindActive(ctx, tenantID)
}
