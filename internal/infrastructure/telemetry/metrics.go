package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// ErrMeterNil is returned when no meter is given
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// CommerceMetrics turns delivered domain events into counters. It is an
// event handler on the in-process bus, so every count is taken from an
// outbox entry that committed.
type CommerceMetrics struct {
	runs          metric.Int64Counter
	runItems      metric.Int64Counter
	purchaseOrder metric.Int64Counter
	syncRuns      metric.Int64Counter
	syncRows      metric.Int64Counter
	logger        *zap.Logger
}

// NewCommerceMetrics registers the instruments on meter
func NewCommerceMetrics(meter metric.Meter, logger *zap.Logger) (*CommerceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &CommerceMetrics{logger: logger}
	var err error
	if m.runs, err = meter.Int64Counter("procurement_runs_total",
		metric.WithDescription("Finished procurement runs by status"),
		metric.WithUnit("{run}")); err != nil {
		return nil, err
	}
	if m.runItems, err = meter.Int64Counter("procurement_run_items_total",
		metric.WithDescription("Order items handled by procurement runs, by stage"),
		metric.WithUnit("{item}")); err != nil {
		return nil, err
	}
	if m.purchaseOrder, err = meter.Int64Counter("purchase_orders_total",
		metric.WithDescription("Supplier purchase orders by outcome"),
		metric.WithUnit("{order}")); err != nil {
		return nil, err
	}
	if m.syncRuns, err = meter.Int64Counter("catalog_sync_runs_total",
		metric.WithDescription("Finished catalog sync runs by status"),
		metric.WithUnit("{run}")); err != nil {
		return nil, err
	}
	if m.syncRows, err = meter.Int64Counter("catalog_sync_rows_total",
		metric.WithDescription("Supplier rows seen by catalog sync, by outcome"),
		metric.WithUnit("{row}")); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes returns the event types this handler is interested in
func (m *CommerceMetrics) EventTypes() []string {
	return []string{
		procurement.EventTypeProcurementRunFinished,
		procurement.EventTypePurchaseOrderSent,
		procurement.EventTypePurchaseOrderFailed,
		procurement.EventTypePurchaseOrderCancelled,
		catalog.EventTypeSyncRunFinished,
	}
}

// Handle records the event. It never fails: a lost data point is not worth
// an outbox retry.
func (m *CommerceMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenant := attribute.String(AttrTenantID, event.TenantID().String())
	switch e := event.(type) {
	case *procurement.ProcurementRunFinishedEvent:
		m.runs.Add(ctx, 1, metric.WithAttributes(tenant, attribute.String(AttrStatus, string(e.Status))))
		c := e.Counters
		for stage, n := range map[string]int{
			"collected":     c.Collected,
			"reserved":      c.Reserved,
			"ordered":       c.Ordered,
			"unfulfillable": c.Unfulfillable,
		} {
			if n > 0 {
				m.runItems.Add(ctx, int64(n), metric.WithAttributes(tenant, attribute.String("stage", stage)))
			}
		}
	case *procurement.PurchaseOrderSentEvent:
		m.purchaseOrder.Add(ctx, 1, metric.WithAttributes(tenant, attribute.String("outcome", "sent")))
	case *procurement.PurchaseOrderFailedEvent:
		m.purchaseOrder.Add(ctx, 1, metric.WithAttributes(tenant, attribute.String("outcome", "failed")))
	case *procurement.PurchaseOrderCancelledEvent:
		m.purchaseOrder.Add(ctx, 1, metric.WithAttributes(tenant, attribute.String("outcome", "cancelled")))
	case *catalog.SyncRunFinishedEvent:
		m.syncRuns.Add(ctx, 1, metric.WithAttributes(tenant, attribute.String(AttrStatus, string(e.Status))))
		c := e.Counters
		for outcome, n := range map[string]int{
			"created":   c.Created,
			"updated":   c.Updated,
			"unchanged": c.Unchanged,
			"retired":   c.Retired,
			"failed":    c.Failed,
		} {
			if n > 0 {
				m.syncRows.Add(ctx, int64(n), metric.WithAttributes(tenant, attribute.String("outcome", outcome)))
			}
		}
	default:
		m.logger.Debug("No metric for event", zap.String("event_type", event.EventType()))
	}
	return nil
}
