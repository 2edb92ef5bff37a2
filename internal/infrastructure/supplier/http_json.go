package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Paging limits for catalog listings
const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// HTTPJSONConnector talks to a supplier REST API with JSON bodies.
//
// Endpoints are relative to the supplier base URL:
//
//	POST /auth/token            username/password login, returns {"token"}
//	GET  /ping                  reachability and credential check
//	GET  /products              paged listing {"items","total","has_more"}
//	GET  /products/{id}         one product
//	POST /prices, /stock        bulk lookups by external id
//	POST /orders                create, keyed by Idempotency-Key
//	GET  /orders/{id}           status
//	POST /orders/{id}/cancel    cancel
//	GET  /warehouses, /categories, /brands
type HTTPJSONConnector struct {
	cfg      integration.ConnectorConfig
	name     string
	baseURL  string
	currency string
	client   *http.Client
	limiter  *rate.Limiter

	mu    sync.RWMutex
	token string
}

// NewHTTPJSONConnector validates the supplier settings and builds the connector
func NewHTTPJSONConnector(cfg integration.ConnectorConfig, opts Options) (*HTTPJSONConnector, error) {
	base, err := parseBaseURL(cfg.BaseURL, "base_url")
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" && cfg.Username == "" {
		return nil, shared.NewConfigurationError("http_json connector needs api_key or username")
	}
	if cfg.Username != "" && cfg.Password == "" {
		return nil, shared.NewConfigurationError("http_json connector: password is required with username")
	}
	opts = opts.withDefaults()
	return &HTTPJSONConnector{
		cfg:      cfg,
		name:     supplierName(cfg),
		baseURL:  base,
		currency: strings.ToUpper(cfg.Options["currency"]),
		client:   opts.client(),
		limiter:  opts.limiter(),
		token:    cfg.APIKey,
	}, nil
}

// NewHTTPJSONFactory returns a registry factory bound to transport options
func NewHTTPJSONFactory(opts Options) integration.ConnectorFactory {
	return func(cfg integration.ConnectorConfig) (integration.SupplierConnector, error) {
		return NewHTTPJSONConnector(cfg, opts)
	}
}

func (c *HTTPJSONConnector) Type() integration.ConnectorType {
	return integration.ConnectorTypeHTTPJSON
}

// Authenticate exchanges username and password for a bearer token. With an
// API key only there is nothing to exchange.
func (c *HTTPJSONConnector) Authenticate(ctx context.Context) error {
	if c.cfg.Username == "" {
		return nil
	}
	var resp struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, request{
		op:     "authenticate",
		method: http.MethodPost,
		path:   "/auth/token",
		body:   map[string]string{"username": c.cfg.Username, "password": c.cfg.Password},
		noAuth: true,
	}, &resp)
	if err != nil {
		return err
	}
	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return integration.NewSupplierError(integration.ErrorKindAuth, c.name, "authenticate", "no token in response", nil)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

type productListResponse struct {
	Items   []map[string]any `json:"items"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
}

func (c *HTTPJSONConnector) GetProducts(ctx context.Context, query integration.ProductQuery) (*integration.ProductPage, error) {
	page, size := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(size))
	if query.Brand != "" {
		params.Set("brand", query.Brand)
	}
	if query.Category != "" {
		params.Set("category", query.Category)
	}
	if query.UpdatedGTE != nil {
		params.Set("updated_since", query.UpdatedGTE.UTC().Format(time.RFC3339))
	}

	var resp productListResponse
	if err := c.do(ctx, request{op: "get_products", method: http.MethodGet, path: "/products", query: params}, &resp); err != nil {
		return nil, err
	}
	out := &integration.ProductPage{
		Products: make([]integration.SupplierProduct, 0, len(resp.Items)),
		Total:    resp.Total,
		HasMore:  resp.HasMore || (resp.Total > 0 && page*size < resp.Total),
	}
	for _, item := range resp.Items {
		out.Products = append(out.Products, c.product(item))
	}
	return out, nil
}

func (c *HTTPJSONConnector) GetProductDetails(ctx context.Context, externalID string) (*integration.SupplierProduct, error) {
	if externalID == "" {
		return nil, integration.NewSupplierError(integration.ErrorKindValidation, c.name, "get_product_details", "external id is required", nil)
	}
	var item map[string]any
	err := c.do(ctx, request{op: "get_product_details", method: http.MethodGet, path: "/products/" + url.PathEscape(externalID)}, &item)
	if err != nil {
		return nil, err
	}
	p := c.product(item)
	return &p, nil
}

func (c *HTTPJSONConnector) product(item map[string]any) integration.SupplierProduct {
	p := ProductFromFields(flatten(item))
	if p.Currency == "" {
		p.Currency = c.currency
	}
	return p
}

func (c *HTTPJSONConnector) GetPrices(ctx context.Context, externalIDs []string) ([]integration.SupplierPrice, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var resp struct {
		Items []struct {
			ExternalID string           `json:"external_id"`
			Price      decimal.Decimal  `json:"price"`
			Currency   string           `json:"currency"`
			MRC        *decimal.Decimal `json:"mrc"`
			EnforceMRC bool             `json:"enforce_mrc"`
		} `json:"items"`
	}
	err := c.do(ctx, request{op: "get_prices", method: http.MethodPost, path: "/prices",
		body: map[string]any{"ids": externalIDs}}, &resp)
	if err != nil {
		return nil, err
	}
	prices := make([]integration.SupplierPrice, 0, len(resp.Items))
	for _, it := range resp.Items {
		cur := strings.ToUpper(it.Currency)
		if cur == "" {
			cur = c.currency
		}
		prices = append(prices, integration.SupplierPrice{
			ExternalID: it.ExternalID,
			Cost:       it.Price,
			Currency:   cur,
			MRC:        it.MRC,
			EnforceMRC: it.EnforceMRC,
		})
	}
	return prices, nil
}

func (c *HTTPJSONConnector) GetStockLevels(ctx context.Context, externalIDs []string, warehouseID string) ([]integration.SupplierStock, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	body := map[string]any{"ids": externalIDs}
	if warehouseID != "" {
		body["warehouse_id"] = warehouseID
	}
	var resp struct {
		Items []struct {
			ExternalID  string          `json:"external_id"`
			WarehouseID string          `json:"warehouse_id"`
			Quantity    decimal.Decimal `json:"quantity"`
		} `json:"items"`
	}
	if err := c.do(ctx, request{op: "get_stock_levels", method: http.MethodPost, path: "/stock", body: body}, &resp); err != nil {
		return nil, err
	}
	levels := make([]integration.SupplierStock, 0, len(resp.Items))
	for _, it := range resp.Items {
		levels = append(levels, integration.SupplierStock{
			ExternalID:  it.ExternalID,
			WarehouseID: it.WarehouseID,
			Quantity:    it.Quantity,
		})
	}
	return levels, nil
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type orderLinePayload struct {
	ExternalID string          `json:"external_id"`
	SKU        string          `json:"sku,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// CreateOrder sends the purchase order with our reference as the
// Idempotency-Key header so a supplier can deduplicate a resend.
func (c *HTTPJSONConnector) CreateOrder(ctx context.Context, req integration.SupplierOrderRequest) (*integration.SupplierOrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, integration.NewSupplierError(integration.ErrorKindValidation, c.name, "create_order", "order has no lines", nil)
	}
	lines := make([]orderLinePayload, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, orderLinePayload{ExternalID: l.ExternalID, SKU: l.SKU, Quantity: l.Quantity, UnitCost: l.UnitCost})
	}
	body := map[string]any{
		"reference": req.Reference.String(),
		"currency":  req.Currency,
		"lines":     lines,
	}
	if req.Comment != "" {
		body["comment"] = req.Comment
	}
	var resp orderResponse
	err := c.do(ctx, request{
		op:      "create_order",
		method:  http.MethodPost,
		path:    "/orders",
		body:    body,
		headers: map[string]string{"Idempotency-Key": req.Reference.String()},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		return nil, integration.NewSupplierError(integration.ErrorKindValidation, c.name, "create_order", "no order id in response", nil)
	}
	return &integration.SupplierOrderResult{OrderID: resp.OrderID, Status: resp.Status}, nil
}

func (c *HTTPJSONConnector) GetOrderStatus(ctx context.Context, externalOrderID string) (*integration.SupplierOrderResult, error) {
	var resp orderResponse
	err := c.do(ctx, request{op: "get_order_status", method: http.MethodGet, path: "/orders/" + url.PathEscape(externalOrderID)}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		resp.OrderID = externalOrderID
	}
	return &integration.SupplierOrderResult{OrderID: resp.OrderID, Status: resp.Status}, nil
}

func (c *HTTPJSONConnector) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	return c.do(ctx, request{
		op:     "cancel_order",
		method: http.MethodPost,
		path:   "/orders/" + url.PathEscape(externalOrderID) + "/cancel",
		body:   map[string]string{"reason": reason},
	}, nil)
}

func (c *HTTPJSONConnector) GetWarehouses(ctx context.Context) ([]integration.SupplierWarehouse, error) {
	var resp struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := c.do(ctx, request{op: "get_warehouses", method: http.MethodGet, path: "/warehouses"}, &resp); err != nil {
		return nil, err
	}
	out := make([]integration.SupplierWarehouse, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, integration.SupplierWarehouse{ID: it.ID, Name: it.Name})
	}
	return out, nil
}

func (c *HTTPJSONConnector) GetCategories(ctx context.Context) ([]integration.SupplierCategory, error) {
	var resp struct {
		Items []struct {
			ID       string `json:"id"`
			ParentID string `json:"parent_id"`
			Name     string `json:"name"`
		} `json:"items"`
	}
	if err := c.do(ctx, request{op: "get_categories", method: http.MethodGet, path: "/categories"}, &resp); err != nil {
		return nil, err
	}
	out := make([]integration.SupplierCategory, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, integration.SupplierCategory{ID: it.ID, ParentID: it.ParentID, Name: it.Name})
	}
	return out, nil
}

func (c *HTTPJSONConnector) GetBrands(ctx context.Context) ([]integration.SupplierBrand, error) {
	var resp struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := c.do(ctx, request{op: "get_brands", method: http.MethodGet, path: "/brands"}, &resp); err != nil {
		return nil, err
	}
	out := make([]integration.SupplierBrand, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, integration.SupplierBrand{ID: it.ID, Name: it.Name})
	}
	return out, nil
}

func (c *HTTPJSONConnector) TestConnection(ctx context.Context) integration.ConnectionTestResult {
	if err := c.Authenticate(ctx); err != nil {
		return integration.ConnectionTestResult{Message: err.Error()}
	}
	if err := c.do(ctx, request{op: "test_connection", method: http.MethodGet, path: "/ping"}, nil); err != nil {
		return integration.ConnectionTestResult{Message: err.Error()}
	}
	return integration.ConnectionTestResult{Success: true, Message: "connection ok"}
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
	noAuth  bool
}

// do performs one call. A 401 with username credentials triggers a single
// re-login before the call is repeated.
func (c *HTTPJSONConnector) do(ctx context.Context, r request, out any) error {
	err := c.roundTrip(ctx, r, out)
	var se *integration.SupplierError
	if err != nil && !r.noAuth && c.cfg.Username != "" && errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		if authErr := c.Authenticate(ctx); authErr != nil {
			return authErr
		}
		return c.roundTrip(ctx, r, out)
	}
	return err
}

func (c *HTTPJSONConnector) roundTrip(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return integration.NewSupplierError(integration.ErrorKindNetwork, c.name, r.op, "rate limiter", err)
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.noAuth {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return integration.NewSupplierError(integration.ErrorKindNetwork, c.name, r.op, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return integration.NewSupplierError(integration.ErrorKindNetwork, c.name, r.op, "read response", err)
	}
	if len(data) > maxResponseSize {
		return integration.NewSupplierError(integration.ErrorKindServer, c.name, r.op, "response exceeds size limit", nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := integration.NewSupplierError(integration.KindFromStatus(resp.StatusCode), c.name, r.op, errorMessage(resp.StatusCode, data), nil)
		se.StatusCode = resp.StatusCode
		return se
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return integration.NewSupplierError(integration.ErrorKindValidation, c.name, r.op, "invalid response body", err)
	}
	return nil
}

// errorMessage extracts the supplier's error text from a failed response
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}

// flatten renders a decoded JSON object as strings. Nested values are kept
// as compact JSON.
func flatten(item map[string]any) map[string]string {
	out := make(map[string]string, len(item))
	for k, v := range item {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			if b, err := json.Marshal(val); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

var _ integration.SupplierConnector = (*HTTPJSONConnector)(nil)
