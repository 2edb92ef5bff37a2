package procurement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeCustomerOrder = "CustomerOrder"
	AggregateTypePurchaseOrder = "SupplierPurchaseOrder"
	AggregateTypeRun           = "ProcurementRun"
)

// Event type constants
const (
	EventTypeCustomerOrderReceived  = "CustomerOrderReceived"
	EventTypeCustomerOrderCancelled = "CustomerOrderCancelled"
	EventTypePurchaseOrderSent      = "PurchaseOrderSent"
	EventTypePurchaseOrderFailed    = "PurchaseOrderFailed"
	EventTypePurchaseOrderCancelled = "PurchaseOrderCancelled"
	EventTypeProcurementRunFinished = "ProcurementRunFinished"
)

// CustomerOrderReceivedEvent is published when an order is ingested
type CustomerOrderReceivedEvent struct {
	shared.EventHeader
	OrderID     uuid.UUID `json:"order_id"`
	ChannelID   uuid.UUID `json:"channel_id"`
	ExternalRef string    `json:"external_ref"`
	ItemCount   int       `json:"item_count"`
}

// NewCustomerOrderReceivedEvent creates a new CustomerOrderReceivedEvent
func NewCustomerOrderReceivedEvent(o *CustomerOrder) *CustomerOrderReceivedEvent {
	return &CustomerOrderReceivedEvent{
		EventHeader: shared.NewEventHeader(EventTypeCustomerOrderReceived, AggregateTypeCustomerOrder, o.ID, o.TenantID),
		OrderID:     o.ID,
		ChannelID:   o.ChannelID,
		ExternalRef: o.ExternalRef,
		ItemCount:   len(o.Items),
	}
}

// CustomerOrderCancelledEvent is published when an order is cancelled
type CustomerOrderCancelledEvent struct {
	shared.EventHeader
	OrderID     uuid.UUID `json:"order_id"`
	ExternalRef string    `json:"external_ref"`
}

// NewCustomerOrderCancelledEvent creates a new CustomerOrderCancelledEvent
func NewCustomerOrderCancelledEvent(o *CustomerOrder) *CustomerOrderCancelledEvent {
	return &CustomerOrderCancelledEvent{
		EventHeader: shared.NewEventHeader(EventTypeCustomerOrderCancelled, AggregateTypeCustomerOrder, o.ID, o.TenantID),
		OrderID:     o.ID,
		ExternalRef: o.ExternalRef,
	}
}

// PurchaseOrderSentEvent is published when a supplier accepted an order
type PurchaseOrderSentEvent struct {
	shared.EventHeader
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	SupplierID      uuid.UUID       `json:"supplier_id"`
	BatchID         uuid.UUID       `json:"batch_id"`
	ExternalOrderID string          `json:"external_order_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
}

// NewPurchaseOrderSentEvent creates a new PurchaseOrderSentEvent
func NewPurchaseOrderSentEvent(o *SupplierPurchaseOrder) *PurchaseOrderSentEvent {
	return &PurchaseOrderSentEvent{
		EventHeader:     shared.NewEventHeader(EventTypePurchaseOrderSent, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		PurchaseOrderID: o.ID,
		SupplierID:      o.SupplierID,
		BatchID:         o.BatchID,
		ExternalOrderID: o.ExternalOrderID,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
	}
}

// PurchaseOrderFailedEvent is published when sending an order failed
type PurchaseOrderFailedEvent struct {
	shared.EventHeader
	PurchaseOrderID uuid.UUID   `json:"purchase_order_id"`
	SupplierID      uuid.UUID   `json:"supplier_id"`
	BatchID         uuid.UUID   `json:"batch_id"`
	Error           string      `json:"error"`
	OrderItemIDs    []uuid.UUID `json:"order_item_ids"`
}

// NewPurchaseOrderFailedEvent creates a new PurchaseOrderFailedEvent
func NewPurchaseOrderFailedEvent(o *SupplierPurchaseOrder) *PurchaseOrderFailedEvent {
	return &PurchaseOrderFailedEvent{
		EventHeader:     shared.NewEventHeader(EventTypePurchaseOrderFailed, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		PurchaseOrderID: o.ID,
		SupplierID:      o.SupplierID,
		BatchID:         o.BatchID,
		Error:           o.LastError,
		OrderItemIDs:    o.OrderItemIDs(),
	}
}

// PurchaseOrderCancelledEvent is published when an order is cancelled
type PurchaseOrderCancelledEvent struct {
	shared.EventHeader
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	SupplierID      uuid.UUID `json:"supplier_id"`
	WasSent         bool      `json:"was_sent"`
	Reason          string    `json:"reason"`
}

// NewPurchaseOrderCancelledEvent creates a new PurchaseOrderCancelledEvent
func NewPurchaseOrderCancelledEvent(o *SupplierPurchaseOrder, wasSent bool) *PurchaseOrderCancelledEvent {
	return &PurchaseOrderCancelledEvent{
		EventHeader:     shared.NewEventHeader(EventTypePurchaseOrderCancelled, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		PurchaseOrderID: o.ID,
		SupplierID:      o.SupplierID,
		WasSent:         wasSent,
		Reason:          o.CancelReason,
	}
}

// ProcurementRunFinishedEvent is published when a run closes
type ProcurementRunFinishedEvent struct {
	shared.EventHeader
	RunID     uuid.UUID   `json:"run_id"`
	ChannelID uuid.UUID   `json:"channel_id"`
	BatchID   uuid.UUID   `json:"batch_id"`
	Status    RunStatus   `json:"status"`
	Counters  RunCounters `json:"counters"`
}

// NewProcurementRunFinishedEvent creates a new ProcurementRunFinishedEvent
func NewProcurementRunFinishedEvent(r *Run) *ProcurementRunFinishedEvent {
	return &ProcurementRunFinishedEvent{
		EventHeader: shared.NewEventHeader(EventTypeProcurementRunFinished, AggregateTypeRun, r.ID, r.TenantID),
		RunID:       r.ID,
		ChannelID:   r.ChannelID,
		BatchID:     r.BatchID,
		Status:      r.Status,
		Counters:    r.RunCounters,
	}
}
