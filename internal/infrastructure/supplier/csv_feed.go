package supplier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// feedMaxSize caps a downloaded price list
const feedMaxSize = 50 * 1024 * 1024

// DefaultFeedTTL is how long a downloaded feed serves repeated calls
const DefaultFeedTTL = 5 * time.Minute

// feedWarehouseID is the single warehouse a feed reports stock for
const feedWarehouseID = "feed"

// CSVFeedConnector reads a supplier price list published as a delimited
// file at a URL. The feed is downloaded once per TTL and served from memory
// for paging and lookups. Feeds are read-only: order operations fail with a
// validation error.
//
// Options: delimiter (one character, sniffed when empty), currency,
// cache_ttl (Go duration), name.
type CSVFeedConnector struct {
	cfg       integration.ConnectorConfig
	name      string
	url       string
	currency  string
	delimiter rune
	ttl       time.Duration
	client    *http.Client
	limiter   *rate.Limiter
	now       func() time.Time

	mu        sync.Mutex
	products  []integration.SupplierProduct
	index     map[string]int
	fetchedAt time.Time
}

// NewCSVFeedConnector validates the supplier settings and builds the connector
func NewCSVFeedConnector(cfg integration.ConnectorConfig, opts Options) (*CSVFeedConnector, error) {
	raw := cfg.BaseURL
	if v := cfg.Options["feed_url"]; v != "" {
		raw = v
	}
	feedURL, err := parseBaseURL(raw, "feed_url")
	if err != nil {
		return nil, err
	}

	var delim rune
	if d := cfg.Options["delimiter"]; d != "" {
		if d == `\t` {
			d = "\t"
		}
		if utf8.RuneCountInString(d) != 1 {
			return nil, shared.NewConfigurationError("csv_feed delimiter must be one character, got %q", d)
		}
		delim, _ = utf8.DecodeRuneInString(d)
	}

	ttl := DefaultFeedTTL
	if v := cfg.Options["cache_ttl"]; v != "" {
		ttl, err = time.ParseDuration(v)
		if err != nil || ttl < 0 {
			return nil, shared.NewConfigurationError("csv_feed cache_ttl is not a valid duration: %q", v)
		}
	}

	opts = opts.withDefaults()
	return &CSVFeedConnector{
		cfg:       cfg,
		name:      supplierName(cfg),
		url:       feedURL,
		currency:  strings.ToUpper(cfg.Options["currency"]),
		delimiter: delim,
		ttl:       ttl,
		client:    opts.client(),
		limiter:   opts.limiter(),
		now:       time.Now,
	}, nil
}

// NewCSVFeedFactory returns a registry factory bound to transport options
func NewCSVFeedFactory(opts Options) integration.ConnectorFactory {
	return func(cfg integration.ConnectorConfig) (integration.SupplierConnector, error) {
		return NewCSVFeedConnector(cfg, opts)
	}
}

func (c *CSVFeedConnector) Type() integration.ConnectorType {
	return integration.ConnectorTypeCSVFeed
}

// Authenticate is a no-op; credentials travel with each download
func (c *CSVFeedConnector) Authenticate(context.Context) error {
	return nil
}

func (c *CSVFeedConnector) GetProducts(ctx context.Context, query integration.ProductQuery) (*integration.ProductPage, error) {
	products, _, err := c.load(ctx, "get_products")
	if err != nil {
		return nil, err
	}

	filtered := products
	if query.Brand != "" || query.Category != "" {
		filtered = make([]integration.SupplierProduct, 0, len(products))
		for _, p := range products {
			if query.Brand != "" && !strings.EqualFold(p.Brand, query.Brand) {
				continue
			}
			if query.Category != "" && !strings.EqualFold(p.Category, query.Category) {
				continue
			}
			filtered = append(filtered, p)
		}
	}

	page, size := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	start := (page - 1) * size
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	out := make([]integration.SupplierProduct, end-start)
	copy(out, filtered[start:end])
	return &integration.ProductPage{Products: out, Total: len(filtered), HasMore: end < len(filtered)}, nil
}

func (c *CSVFeedConnector) GetProductDetails(ctx context.Context, externalID string) (*integration.SupplierProduct, error) {
	products, index, err := c.load(ctx, "get_product_details")
	if err != nil {
		return nil, err
	}
	i, ok := index[externalID]
	if !ok {
		return nil, integration.NewSupplierError(integration.ErrorKindNotFound, c.name, "get_product_details",
			fmt.Sprintf("product %q not in feed", externalID), nil)
	}
	p := products[i]
	return &p, nil
}

// GetPrices skips rows whose price does not parse as a plain decimal.
// Locale formatted prices are left to the catalog normalizer.
func (c *CSVFeedConnector) GetPrices(ctx context.Context, externalIDs []string) ([]integration.SupplierPrice, error) {
	products, index, err := c.load(ctx, "get_prices")
	if err != nil {
		return nil, err
	}
	prices := make([]integration.SupplierPrice, 0, len(externalIDs))
	for _, id := range externalIDs {
		i, ok := index[id]
		if !ok {
			continue
		}
		p := products[i]
		cost, err := decimal.NewFromString(plainNumber(p.Price))
		if err != nil {
			continue
		}
		sp := integration.SupplierPrice{ExternalID: id, Cost: cost, Currency: p.Currency, EnforceMRC: p.EnforceMRC}
		if mrc, err := decimal.NewFromString(plainNumber(p.MRC)); err == nil {
			sp.MRC = &mrc
		}
		prices = append(prices, sp)
	}
	return prices, nil
}

func (c *CSVFeedConnector) GetStockLevels(ctx context.Context, externalIDs []string, warehouseID string) ([]integration.SupplierStock, error) {
	if warehouseID != "" && warehouseID != feedWarehouseID {
		return nil, nil
	}
	products, index, err := c.load(ctx, "get_stock_levels")
	if err != nil {
		return nil, err
	}
	levels := make([]integration.SupplierStock, 0, len(externalIDs))
	for _, id := range externalIDs {
		i, ok := index[id]
		if !ok {
			continue
		}
		qty, err := decimal.NewFromString(plainNumber(products[i].Quantity))
		if err != nil {
			qty = decimal.Zero
		}
		levels = append(levels, integration.SupplierStock{ExternalID: id, WarehouseID: feedWarehouseID, Quantity: qty})
	}
	return levels, nil
}

func (c *CSVFeedConnector) unsupported(op string) error {
	return integration.NewSupplierError(integration.ErrorKindValidation, c.name, op, "price list feeds do not accept orders", nil)
}

func (c *CSVFeedConnector) CreateOrder(context.Context, integration.SupplierOrderRequest) (*integration.SupplierOrderResult, error) {
	return nil, c.unsupported("create_order")
}

func (c *CSVFeedConnector) GetOrderStatus(context.Context, string) (*integration.SupplierOrderResult, error) {
	return nil, c.unsupported("get_order_status")
}

func (c *CSVFeedConnector) CancelOrder(context.Context, string, string) error {
	return c.unsupported("cancel_order")
}

func (c *CSVFeedConnector) GetWarehouses(context.Context) ([]integration.SupplierWarehouse, error) {
	return []integration.SupplierWarehouse{{ID: feedWarehouseID, Name: c.name}}, nil
}

func (c *CSVFeedConnector) GetCategories(ctx context.Context) ([]integration.SupplierCategory, error) {
	products, _, err := c.load(ctx, "get_categories")
	if err != nil {
		return nil, err
	}
	names := distinct(products, func(p integration.SupplierProduct) string { return p.Category })
	out := make([]integration.SupplierCategory, 0, len(names))
	for _, n := range names {
		out = append(out, integration.SupplierCategory{ID: n, Name: n})
	}
	return out, nil
}

func (c *CSVFeedConnector) GetBrands(ctx context.Context) ([]integration.SupplierBrand, error) {
	products, _, err := c.load(ctx, "get_brands")
	if err != nil {
		return nil, err
	}
	names := distinct(products, func(p integration.SupplierProduct) string { return p.Brand })
	out := make([]integration.SupplierBrand, 0, len(names))
	for _, n := range names {
		out = append(out, integration.SupplierBrand{ID: n, Name: n})
	}
	return out, nil
}

// TestConnection downloads the feed ignoring the cache
func (c *CSVFeedConnector) TestConnection(ctx context.Context) integration.ConnectionTestResult {
	products, _, err := c.fetch(ctx, "test_connection")
	if err != nil {
		return integration.ConnectionTestResult{Message: err.Error()}
	}
	return integration.ConnectionTestResult{Success: true, Message: fmt.Sprintf("feed has %d products", len(products))}
}

// load returns the cached feed, downloading it when stale
func (c *CSVFeedConnector) load(ctx context.Context, op string) ([]integration.SupplierProduct, map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.products != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.products, c.index, nil
	}
	products, index, err := c.fetch(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	c.products, c.index, c.fetchedAt = products, index, c.now()
	return products, index, nil
}

func (c *CSVFeedConnector) fetch(ctx context.Context, op string) ([]integration.SupplierProduct, map[string]int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, integration.NewSupplierError(integration.ErrorKindNetwork, c.name, op, "rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	switch {
	case c.cfg.Username != "":
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	case c.cfg.APIKey != "":
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, integration.NewSupplierError(integration.ErrorKindNetwork, c.name, op, "download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := integration.NewSupplierError(integration.KindFromStatus(resp.StatusCode), c.name, op,
			fmt.Sprintf("feed download returned HTTP %d", resp.StatusCode), nil)
		se.StatusCode = resp.StatusCode
		return nil, nil, se
	}

	body := io.LimitReader(resp.Body, feedMaxSize)
	var readerOpts []FeedReaderOption
	if c.delimiter != 0 {
		readerOpts = append(readerOpts, WithFeedDelimiter(c.delimiter))
	}
	reader, err := NewFeedReader(body, readerOpts...)
	if err != nil {
		return nil, nil, integration.NewSupplierError(integration.ErrorKindValidation, c.name, op, "unreadable feed", err)
	}

	var products []integration.SupplierProduct
	index := make(map[string]int)
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, integration.NewSupplierError(integration.ErrorKindValidation, c.name, op, "malformed feed", err)
		}
		p := ProductFromFields(row.Fields)
		if p.ExternalID == "" {
			continue
		}
		if p.Currency == "" {
			p.Currency = c.currency
		}
		if i, dup := index[p.ExternalID]; dup {
			products[i] = p
			continue
		}
		index[p.ExternalID] = len(products)
		products = append(products, p)
	}
	if products == nil {
		products = []integration.SupplierProduct{}
	}
	return products, index, nil
}

// plainNumber strips spaces and turns a decimal comma into a point.
// Values with both separators are returned untouched and fail to parse.
func plainNumber(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

func distinct(products []integration.SupplierProduct, key func(integration.SupplierProduct) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		k := key(p)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ integration.SupplierConnector = (*CSVFeedConnector)(nil)
