package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ConnectorType identifies a supplier adapter implementation
// ---------------------------------------------------------------------------

// ConnectorType is the type code stored on a supplier record
type ConnectorType string

const (
	// ConnectorTypeHTTPJSON is a generic REST/JSON supplier API
	ConnectorTypeHTTPJSON ConnectorType = "http_json"
	// ConnectorTypeCSVFeed is a supplier publishing a CSV price list at a URL
	ConnectorTypeCSVFeed ConnectorType = "csv_feed"
)

// String returns the string representation of ConnectorType
func (t ConnectorType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// SupplierProduct is one catalog row as reported by a supplier, before
// normalization. Numeric fields stay raw strings so locale handling happens
// in one place.
type SupplierProduct struct {
	// ExternalID is the supplier's own identifier for the product
	ExternalID string `json:"external_id"`
	// SKU is the supplier article; it becomes the internal SKU after normalization
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	// Price is the raw cost string, e.g. "1 234,50"
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
	// MRC is the minimum resale price the supplier enforces, raw
	MRC        string `json:"mrc,omitempty"`
	EnforceMRC bool   `json:"enforce_mrc,omitempty"`
	Quantity   string `json:"quantity"`
	Weight     string `json:"weight,omitempty"`
	WeightUnit string `json:"weight_unit,omitempty"`
	Volume     string `json:"volume,omitempty"`
	VolumeUnit string `json:"volume_unit,omitempty"`
	Divisible  bool   `json:"divisible,omitempty"`
	// Attributes holds any extra fields under their original (aliased) names
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ProductQuery filters a catalog listing
type ProductQuery struct {
	Page       int
	PageSize   int
	Brand      string
	Category   string
	UpdatedGTE *time.Time
}

// ProductPage is one page of a catalog listing
type ProductPage struct {
	Products []SupplierProduct
	Total    int
	HasMore  bool
}

// SupplierPrice is a cost quote for one product
type SupplierPrice struct {
	ExternalID string
	Cost       decimal.Decimal
	Currency   string
	MRC        *decimal.Decimal
	EnforceMRC bool
}

// SupplierStock is a stock level for one product, optionally per supplier warehouse
type SupplierStock struct {
	ExternalID  string
	WarehouseID string
	Quantity    decimal.Decimal
}

// SupplierWarehouse describes a supplier-side warehouse
type SupplierWarehouse struct {
	ID   string
	Name string
}

// SupplierCategory is a node in the supplier category tree
type SupplierCategory struct {
	ID       string
	ParentID string
	Name     string
}

// SupplierBrand is a brand the supplier distributes
type SupplierBrand struct {
	ID   string
	Name string
}

// ---------------------------------------------------------------------------
// Order DTOs
// ---------------------------------------------------------------------------

// SupplierOrderLine is one line of an outbound purchase order
type SupplierOrderLine struct {
	ExternalID string
	SKU        string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
}

// SupplierOrderRequest is the payload of createOrder
type SupplierOrderRequest struct {
	// Reference is our purchase order ID, sent for idempotent order creation
	Reference uuid.UUID
	TenantID  uuid.UUID
	Currency  string
	Lines     []SupplierOrderLine
	Comment   string
}

// SupplierOrderResult is the outcome of createOrder or getOrderStatus
type SupplierOrderResult struct {
	OrderID string
	Status  string
}

// ConnectionTestResult is the outcome of testConnection
type ConnectionTestResult struct {
	Success bool
	Message string
}

// ---------------------------------------------------------------------------
// SupplierConnector Port Interface
// ---------------------------------------------------------------------------

// SupplierConnector is the uniform capability contract every supplier adapter
// implements. Implementations return *SupplierError for remote failures so
// callers can decide on retries.
type SupplierConnector interface {
	// Type returns the connector type code this adapter handles
	Type() ConnectorType

	// Authenticate establishes or refreshes credentials
	Authenticate(ctx context.Context) error

	// GetProducts lists one page of the supplier catalog
	GetProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)

	// GetProductDetails fetches one product by its external ID
	GetProductDetails(ctx context.Context, externalID string) (*SupplierProduct, error)

	// GetPrices fetches cost quotes for the given external IDs
	GetPrices(ctx context.Context, externalIDs []string) ([]SupplierPrice, error)

	// GetStockLevels fetches stock, optionally for one supplier warehouse
	GetStockLevels(ctx context.Context, externalIDs []string, warehouseID string) ([]SupplierStock, error)

	// CreateOrder places a purchase order. It is not idempotent and never retried.
	CreateOrder(ctx context.Context, req SupplierOrderRequest) (*SupplierOrderResult, error)

	// GetOrderStatus queries an order previously created
	GetOrderStatus(ctx context.Context, externalOrderID string) (*SupplierOrderResult, error)

	// CancelOrder cancels an order previously created
	CancelOrder(ctx context.Context, externalOrderID, reason string) error

	// GetWarehouses lists supplier warehouses
	GetWarehouses(ctx context.Context) ([]SupplierWarehouse, error)

	// GetCategories lists supplier categories
	GetCategories(ctx context.Context) ([]SupplierCategory, error)

	// GetBrands lists supplier brands
	GetBrands(ctx context.Context) ([]SupplierBrand, error)

	// TestConnection checks credentials and reachability without side effects
	TestConnection(ctx context.Context) ConnectionTestResult
}

// ConnectorConfig is what a factory needs to build an adapter for one supplier
type ConnectorConfig struct {
	SupplierID uuid.UUID
	TenantID   uuid.UUID
	BaseURL    string
	APIKey     string
	Username   string
	Password   string
	// Options holds adapter specific settings
	Options map[string]string
}

// ConnectorFactory builds an adapter from supplier settings
type ConnectorFactory func(cfg ConnectorConfig) (SupplierConnector, error)

// ConnectorRegistry resolves connector type codes to adapters
type ConnectorRegistry interface {
	// Connector builds the adapter for a supplier. Unknown type codes
	// return a CONFIGURATION_ERROR.
	Connector(connectorType ConnectorType, cfg ConnectorConfig) (SupplierConnector, error)

	// Types lists the registered type codes
	Types() []ConnectorType

	// Supports reports whether a type code is registered
	Supports(connectorType ConnectorType) bool
}
