package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// SupplierResponse is a supplier without its credentials
type SupplierResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	ConnectorType      string     `json:"connector_type"`
	BaseURL            string     `json:"base_url,omitempty"`
	Currency           string     `json:"currency,omitempty"`
	VirtualWarehouseID *uuid.UUID `json:"virtual_warehouse_id,omitempty"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toSupplierResponse(s *partner.Supplier) SupplierResponse {
	settings := s.Settings.Data()
	return SupplierResponse{
		ID:                 s.ID,
		Code:               s.Code,
		Name:               s.Name,
		Status:             string(s.Status),
		ConnectorType:      s.ConnectorType.String(),
		BaseURL:            settings.BaseURL,
		Currency:           settings.Currency,
		VirtualWarehouseID: s.VirtualWarehouseID,
		LastSyncAt:         s.LastSyncAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// WarehouseResponse is a warehouse
type WarehouseResponse struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Priority   int        `json:"priority"`
	SupplierID *uuid.UUID `json:"supplier_id,omitempty"`
}

func toWarehouseResponse(w *partner.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:         w.ID,
		Code:       w.Code,
		Name:       w.Name,
		Type:       string(w.Type),
		Status:     string(w.Status),
		Priority:   w.Priority,
		SupplierID: w.SupplierID,
	}
}

// BrandSourceResponse is a brand to master supplier mapping
type BrandSourceResponse struct {
	Brand      string    `json:"brand"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

// SyncRunResponse is one catalog sync pass
type SyncRunResponse struct {
	ID         uuid.UUID  `json:"id"`
	SupplierID uuid.UUID  `json:"supplier_id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	catalog.SyncCounters
	Errors      []shared.ItemError `json:"errors,omitempty"`
	SnapshotKey string             `json:"snapshot_key,omitempty"`
	FailReason  string             `json:"fail_reason,omitempty"`
}

func toSyncRunResponse(r *catalog.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:           r.ID,
		SupplierID:   r.SupplierID,
		Trigger:      r.Trigger,
		Status:       string(r.Status),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		SyncCounters: r.SyncCounters,
		Errors:       r.Errors,
		SnapshotKey:  r.SnapshotKey,
		FailReason:   r.FailReason,
	}
}

// ConnectionTestResponse reports a connector check
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toConnectionTestResponse(r integration.ConnectionTestResult) ConnectionTestResponse {
	return ConnectionTestResponse{Success: r.Success, Message: r.Message}
}

// StockResponse is one (warehouse, product) stock link
type StockResponse struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reserved    decimal.Decimal `json:"reserved"`
	Available   decimal.Decimal `json:"available"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toStockResponse(l *inventory.StockLink) StockResponse {
	return StockResponse{
		WarehouseID: l.WarehouseID,
		ProductID:   l.ProductID,
		Quantity:    l.Quantity,
		Reserved:    l.Reserved,
		Available:   l.Available,
		UnitPrice:   l.UnitPrice,
		UpdatedAt:   l.UpdatedAt,
	}
}

// MovementResponse is one stock movement
type MovementResponse struct {
	ID              uuid.UUID       `json:"id"`
	Type            string          `json:"type"`
	FromWarehouseID *uuid.UUID      `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *uuid.UUID      `json:"to_warehouse_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Reason          string          `json:"reason,omitempty"`
	OrderRef        string          `json:"order_ref,omitempty"`
	Actor           string          `json:"actor"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		Type:            string(m.Type),
		FromWarehouseID: m.FromWarehouseID,
		ToWarehouseID:   m.ToWarehouseID,
		Quantity:        m.Quantity,
		Reason:          m.Reason,
		OrderRef:        m.OrderRef,
		Actor:           m.Actor,
		CreatedAt:       m.CreatedAt,
	}
}

// ChannelResponse is a sales channel with its pricing rules
type ChannelResponse struct {
	ID                   uuid.UUID                `json:"id"`
	Code                 string                   `json:"code"`
	Name                 string                   `json:"name"`
	Marketplace          string                   `json:"marketplace"`
	Status               string                   `json:"status"`
	PricingRules         marketplace.PricingRules `json:"pricing_rules"`
	RulesVersion         int                      `json:"rules_version"`
	ProcurementSchedule  string                   `json:"procurement_schedule,omitempty"`
	AutoConfirm          bool                     `json:"auto_confirm"`
	PreferredWarehouseID *uuid.UUID               `json:"preferred_warehouse_id,omitempty"`
}

func toChannelResponse(ch *marketplace.SalesChannel) ChannelResponse {
	return ChannelResponse{
		ID:                   ch.ID,
		Code:                 ch.Code,
		Name:                 ch.Name,
		Marketplace:          ch.Marketplace,
		Status:               string(ch.Status),
		PricingRules:         ch.PricingRules.Data(),
		RulesVersion:         ch.RulesVersion,
		ProcurementSchedule:  ch.ProcurementSchedule,
		AutoConfirm:          ch.AutoConfirm,
		PreferredWarehouseID: ch.PreferredWarehouseID,
	}
}

// PriceLinkResponse is the stored price of a product on a channel
type PriceLinkResponse struct {
	ChannelID    uuid.UUID        `json:"channel_id"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	OfferID      *uuid.UUID       `json:"offer_id,omitempty"`
	Trail        []string         `json:"trail"`
	RulesVersion int              `json:"rules_version"`
	CalculatedAt *time.Time       `json:"calculated_at,omitempty"`
}

func toPriceLinkResponse(l *marketplace.PriceLink) PriceLinkResponse {
	return PriceLinkResponse{
		ChannelID:    l.ChannelID,
		Price:        l.Price,
		Currency:     string(l.Currency),
		OfferID:      l.OfferID,
		Trail:        l.Trail,
		RulesVersion: l.RulesVersion,
		CalculatedAt: l.CalculatedAt,
	}
}

// OrderItemResponse is one line of a customer order
type OrderItemResponse struct {
	ID                  uuid.UUID       `json:"id"`
	ProductID           uuid.UUID       `json:"product_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	ReservedQuantity    decimal.Decimal `json:"reserved_quantity"`
	ReservedWarehouseID *uuid.UUID      `json:"reserved_warehouse_id,omitempty"`
	ProcureQuantity     decimal.Decimal `json:"procure_quantity"`
	ProcurementStatus   string          `json:"procurement_status"`
	FulfillmentStatus   string          `json:"fulfillment_status"`
	PurchaseOrderID     *uuid.UUID      `json:"purchase_order_id,omitempty"`
}

// OrderResponse is a customer order with its items
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	ChannelID   uuid.UUID           `json:"channel_id"`
	ExternalRef string              `json:"external_ref"`
	Status      string              `json:"status"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
}

func toOrderResponse(o *procurement.CustomerOrder) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		items[i] = OrderItemResponse{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			ReservedQuantity:    it.ReservedQuantity,
			ReservedWarehouseID: it.ReservedWarehouseID,
			ProcureQuantity:     it.ProcureQuantity,
			ProcurementStatus:   string(it.ProcurementStatus),
			FulfillmentStatus:   string(it.FulfillmentStatus),
			PurchaseOrderID:     it.PurchaseOrderID,
		}
	}
	return OrderResponse{
		ID:          o.ID,
		ChannelID:   o.ChannelID,
		ExternalRef: o.ExternalRef,
		Status:      string(o.Status),
		Items:       items,
		CreatedAt:   o.CreatedAt,
		CancelledAt: o.CancelledAt,
	}
}

// OverrideResponse is a manual exclusion of an order item
type OverrideResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOverrideResponse(o *procurement.ManualOverride) OverrideResponse {
	return OverrideResponse{
		ID:          o.ID,
		OrderItemID: o.OrderItemID,
		ProductID:   o.ProductID,
		Reason:      o.Reason,
		Actor:       o.Actor,
		CreatedAt:   o.CreatedAt,
	}
}

// RunResponse is one procurement pass
type RunResponse struct {
	ID         uuid.UUID  `json:"id"`
	ChannelID  uuid.UUID  `json:"channel_id"`
	BatchID    uuid.UUID  `json:"batch_id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	procurement.RunCounters
	Errors     []shared.ItemError `json:"errors,omitempty"`
	FailReason string             `json:"fail_reason,omitempty"`
}

func toRunResponse(r *procurement.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		ChannelID:   r.ChannelID,
		BatchID:     r.BatchID,
		Trigger:     r.Trigger,
		Status:      string(r.Status),
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		RunCounters: r.RunCounters,
		Errors:      r.Errors,
		FailReason:  r.FailReason,
	}
}

// PurchaseOrderLineResponse is one line of a supplier purchase order
type PurchaseOrderLineResponse struct {
	ProductID         uuid.UUID       `json:"product_id"`
	ExternalProductID string          `json:"external_product_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Amount            decimal.Decimal `json:"amount"`
	OrderItemIDs      []uuid.UUID     `json:"order_item_ids"`
}

// PurchaseOrderResponse is a supplier purchase order with its lines
type PurchaseOrderResponse struct {
	ID              uuid.UUID                   `json:"id"`
	ChannelID       uuid.UUID                   `json:"channel_id"`
	SupplierID      uuid.UUID                   `json:"supplier_id"`
	BatchID         uuid.UUID                   `json:"batch_id"`
	Status          string                      `json:"status"`
	Currency        string                      `json:"currency"`
	TotalAmount     decimal.Decimal             `json:"total_amount"`
	Lines           []PurchaseOrderLineResponse `json:"lines"`
	ExternalOrderID string                      `json:"external_order_id,omitempty"`
	ExternalStatus  string                      `json:"external_status,omitempty"`
	LastError       string                      `json:"last_error,omitempty"`
	SentAt          *time.Time                  `json:"sent_at,omitempty"`
	CancelReason    string                      `json:"cancel_reason,omitempty"`
}

func toPurchaseOrderResponse(po *procurement.SupplierPurchaseOrder) PurchaseOrderResponse {
	lines := make([]PurchaseOrderLineResponse, len(po.Lines))
	for i := range po.Lines {
		l := &po.Lines[i]
		ids := make([]uuid.UUID, len(l.Contributions))
		for j, c := range l.Contributions {
			ids[j] = c.OrderItemID
		}
		lines[i] = PurchaseOrderLineResponse{
			ProductID:         l.ProductID,
			ExternalProductID: l.ExternalProductID,
			Quantity:          l.Quantity,
			UnitCost:          l.UnitCost,
			Amount:            l.Amount,
			OrderItemIDs:      ids,
		}
	}
	return PurchaseOrderResponse{
		ID:              po.ID,
		ChannelID:       po.ChannelID,
		SupplierID:      po.SupplierID,
		BatchID:         po.BatchID,
		Status:          string(po.Status),
		Currency:        po.Currency,
		TotalAmount:     po.TotalAmount,
		Lines:           lines,
		ExternalOrderID: po.ExternalOrderID,
		ExternalStatus:  po.ExternalStatus,
		LastError:       po.LastError,
		SentAt:          po.SentAt,
		CancelReason:    po.CancelReason,
	}
}

// mapSlice converts a slice of domain values with a response constructor
func mapSlice[T any, R any](in []T, fn func(*T) R) []R {
	out := make([]R, len(in))
	for i := range in {
		out[i] = fn(&in[i])
	}
	return out
}
