package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// FakeConnectorType is the type code FakeRegistry resolves
const FakeConnectorType integration.ConnectorType = "fake"

// FakeConnector is an in-memory supplier. Catalog rows, failure hooks and
// received orders are safe to inspect from tests.
type FakeConnector struct {
	mu sync.Mutex

	products   []integration.SupplierProduct
	orders     map[string]*fakeOrder
	requests   []integration.SupplierOrderRequest
	cancelled  []string
	nextOrder  int
	productErr error
	orderErr   error
	cancelErr  error
	statusErr  error
	calls      map[string]int
}

type fakeOrder struct {
	reference uuid.UUID
	status    string
}

// NewFakeConnector creates a supplier that serves the given catalog
func NewFakeConnector(products ...integration.SupplierProduct) *FakeConnector {
	return &FakeConnector{
		products: products,
		orders:   make(map[string]*fakeOrder),
		calls:    make(map[string]int),
	}
}

// SetProducts replaces the catalog
func (f *FakeConnector) SetProducts(products ...integration.SupplierProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = products
}

// FailProducts makes catalog reads fail
func (f *FakeConnector) FailProducts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productErr = err
}

// FailOrders makes order creation fail
func (f *FakeConnector) FailOrders(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderErr = err
}

// FailCancel makes order cancellation fail
func (f *FakeConnector) FailCancel(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelErr = err
}

// FailStatus makes order status reads fail
func (f *FakeConnector) FailStatus(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusErr = err
}

// SetOrderStatus changes the remote status of a created order
func (f *FakeConnector) SetOrderStatus(orderID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		o.status = status
	}
}

// Requests returns the order requests received so far
func (f *FakeConnector) Requests() []integration.SupplierOrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]integration.SupplierOrderRequest(nil), f.requests...)
}

// Cancelled returns the order IDs cancelled so far
func (f *FakeConnector) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

// Calls counts invocations of one method
func (f *FakeConnector) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeConnector) hit(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *FakeConnector) Type() integration.ConnectorType { return FakeConnectorType }

func (f *FakeConnector) Authenticate(context.Context) error {
	f.hit("Authenticate")
	return nil
}

func (f *FakeConnector) GetProducts(_ context.Context, q integration.ProductQuery) (*integration.ProductPage, error) {
	f.hit("GetProducts")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return nil, f.productErr
	}
	size := q.PageSize
	if size <= 0 {
		size = 100
	}
	page := max(q.Page, 1)
	start := min((page-1)*size, len(f.products))
	end := min(start+size, len(f.products))
	return &integration.ProductPage{
		Products: append([]integration.SupplierProduct(nil), f.products[start:end]...),
		Total:    len(f.products),
		HasMore:  end < len(f.products),
	}, nil
}

func (f *FakeConnector) GetProductDetails(_ context.Context, externalID string) (*integration.SupplierProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ExternalID == externalID {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, integration.NewSupplierError(integration.ErrorKindNotFound, "fake", "GetProductDetails", "no such product", nil)
}

func (f *FakeConnector) GetPrices(context.Context, []string) ([]integration.SupplierPrice, error) {
	return nil, nil
}

func (f *FakeConnector) GetStockLevels(context.Context, []string, string) ([]integration.SupplierStock, error) {
	return nil, nil
}

func (f *FakeConnector) CreateOrder(_ context.Context, req integration.SupplierOrderRequest) (*integration.SupplierOrderResult, error) {
	f.hit("CreateOrder")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.requests = append(f.requests, req)
	f.nextOrder++
	id := fmt.Sprintf("EXT-%d", f.nextOrder)
	f.orders[id] = &fakeOrder{reference: req.Reference, status: "accepted"}
	return &integration.SupplierOrderResult{OrderID: id, Status: "accepted"}, nil
}

func (f *FakeConnector) GetOrderStatus(_ context.Context, orderID string) (*integration.SupplierOrderResult, error) {
	f.hit("GetOrderStatus")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, integration.NewSupplierError(integration.ErrorKindNotFound, "fake", "GetOrderStatus", "no such order", nil)
	}
	return &integration.SupplierOrderResult{OrderID: orderID, Status: o.status}, nil
}

func (f *FakeConnector) CancelOrder(_ context.Context, orderID, _ string) error {
	f.hit("CancelOrder")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if o, ok := f.orders[orderID]; ok {
		o.status = "cancelled"
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *FakeConnector) GetWarehouses(context.Context) ([]integration.SupplierWarehouse, error) {
	return []integration.SupplierWarehouse{{ID: "main", Name: "Main"}}, nil
}

func (f *FakeConnector) GetCategories(context.Context) ([]integration.SupplierCategory, error) {
	return nil, nil
}

func (f *FakeConnector) GetBrands(context.Context) ([]integration.SupplierBrand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var brands []integration.SupplierBrand
	for _, p := range f.products {
		if p.Brand != "" && !seen[p.Brand] {
			seen[p.Brand] = true
			brands = append(brands, integration.SupplierBrand{ID: p.Brand, Name: p.Brand})
		}
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].Name < brands[j].Name })
	return brands, nil
}

func (f *FakeConnector) TestConnection(context.Context) integration.ConnectionTestResult {
	return integration.ConnectionTestResult{Success: true, Message: "ok"}
}

// FakeRegistry resolves suppliers to fake connectors by supplier ID
type FakeRegistry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*FakeConnector
}

// NewFakeRegistry creates an empty registry
func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{conns: make(map[uuid.UUID]*FakeConnector)}
}

// Bind routes a supplier to a connector
func (r *FakeRegistry) Bind(supplierID uuid.UUID, conn *FakeConnector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[supplierID] = conn
}

func (r *FakeRegistry) Connector(connectorType integration.ConnectorType, cfg integration.ConnectorConfig) (integration.SupplierConnector, error) {
	if connectorType != FakeConnectorType {
		return nil, shared.NewConfigurationError("unknown connector type %q", connectorType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[cfg.SupplierID]
	if !ok {
		return nil, shared.NewConfigurationError("no fake connector bound for supplier %s", cfg.SupplierID)
	}
	return conn, nil
}

func (r *FakeRegistry) Types() []integration.ConnectorType {
	return []integration.ConnectorType{FakeConnectorType}
}

func (r *FakeRegistry) Supports(connectorType integration.ConnectorType) bool {
	return connectorType == FakeConnectorType
}

var (
	_ integration.SupplierConnector = (*FakeConnector)(nil)
	_ integration.ConnectorRegistry = (*FakeRegistry)(nil)
)
