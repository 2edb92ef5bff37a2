package pricing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// OfferChangedHandler recalculates a product when one of its offers changes.
// Errors are returned so the outbox retries delivery.
type OfferChangedHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewOfferChangedHandler creates the handler
func NewOfferChangedHandler(service *Service, logger *zap.Logger) *OfferChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferChangedHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OfferChangedHandler) EventTypes() []string {
	return []string{catalog.EventTypeSupplierOfferChanged}
}

// Handle processes a SupplierOfferChangedEvent
func (h *OfferChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*catalog.SupplierOfferChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}
	_, err := h.service.RecalculateProduct(ctx, e.TenantID(), e.ProductID)
	return err
}

// RulesChangedHandler recalculates a channel after its pricing rules change
type RulesChangedHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewRulesChangedHandler creates the handler
func NewRulesChangedHandler(service *Service, logger *zap.Logger) *RulesChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RulesChangedHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RulesChangedHandler) EventTypes() []string {
	return []string{marketplace.EventTypePricingRulesChanged}
}

// Handle processes a PricingRulesChangedEvent. Per-product failures are
// logged; only a failure to start the pass is retried.
func (h *RulesChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*marketplace.PricingRulesChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}
	res, err := h.service.RecalculateChannel(ctx, e.TenantID(), e.ChannelID)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		h.logger.Warn("Channel recalculation had failures",
			zap.String("channel_id", e.ChannelID.String()),
			zap.Int("failed", res.Failed))
	}
	return nil
}

var (
	_ shared.EventHandler = (*OfferChangedHandler)(nil)
	_ shared.EventHandler = (*RulesChangedHandler)(nil)
)
