package supplier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// RetryPolicy bounds in-call retries of idempotent supplier reads
type RetryPolicy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// RetryPolicyFromConfig maps the supplier section of the configuration
func RetryPolicyFromConfig(cfg config.SupplierConfig) RetryPolicy {
	return RetryPolicy{Attempts: cfg.RetryAttempts, BaseBackoff: cfg.BaseBackoff, MaxBackoff: cfg.MaxBackoff}
}

// RetryingConnector retries reads that fail with a transient supplier error.
// CreateOrder and CancelOrder are passed through once and never repeated
// here. A failed CreateOrder leaves the purchase order in error and its
// items failed, so the next procurement run orders them again. A failed
// CancelOrder is only logged by the caller.
type RetryingConnector struct {
	next   integration.SupplierConnector
	policy RetryPolicy
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingConnector wraps next with the given policy
func NewRetryingConnector(next integration.SupplierConnector, policy RetryPolicy, log *zap.Logger) *RetryingConnector {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RetryingConnector{next: next, policy: policy, log: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retry[T any](ctx context.Context, r *RetryingConnector, op string, call func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = call()
		if err == nil || !integration.IsTransient(err) || attempt >= r.policy.Attempts {
			return result, err
		}
		wait := shared.RetryBackoff(attempt, r.policy.BaseBackoff, r.policy.MaxBackoff)
		logger.WithLogger(ctx, r.log).Warn("supplier call failed, retrying",
			zap.String("connector", r.next.Type().String()),
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			return result, err
		}
	}
}

func (r *RetryingConnector) Type() integration.ConnectorType {
	return r.next.Type()
}

func (r *RetryingConnector) Authenticate(ctx context.Context) error {
	_, err := retry(ctx, r, "authenticate", func() (struct{}, error) {
		return struct{}{}, r.next.Authenticate(ctx)
	})
	return err
}

func (r *RetryingConnector) GetProducts(ctx context.Context, query integration.ProductQuery) (*integration.ProductPage, error) {
	return retry(ctx, r, "get_products", func() (*integration.ProductPage, error) {
		return r.next.GetProducts(ctx, query)
	})
}

func (r *RetryingConnector) GetProductDetails(ctx context.Context, externalID string) (*integration.SupplierProduct, error) {
	return retry(ctx, r, "get_product_details", func() (*integration.SupplierProduct, error) {
		return r.next.GetProductDetails(ctx, externalID)
	})
}

func (r *RetryingConnector) GetPrices(ctx context.Context, externalIDs []string) ([]integration.SupplierPrice, error) {
	return retry(ctx, r, "get_prices", func() ([]integration.SupplierPrice, error) {
		return r.next.GetPrices(ctx, externalIDs)
	})
}

func (r *RetryingConnector) GetStockLevels(ctx context.Context, externalIDs []string, warehouseID string) ([]integration.SupplierStock, error) {
	return retry(ctx, r, "get_stock_levels", func() ([]integration.SupplierStock, error) {
		return r.next.GetStockLevels(ctx, externalIDs, warehouseID)
	})
}

func (r *RetryingConnector) CreateOrder(ctx context.Context, req integration.SupplierOrderRequest) (*integration.SupplierOrderResult, error) {
	return r.next.CreateOrder(ctx, req)
}

func (r *RetryingConnector) GetOrderStatus(ctx context.Context, externalOrderID string) (*integration.SupplierOrderResult, error) {
	return retry(ctx, r, "get_order_status", func() (*integration.SupplierOrderResult, error) {
		return r.next.GetOrderStatus(ctx, externalOrderID)
	})
}

func (r *RetryingConnector) CancelOrder(ctx context.Context, externalOrderID, reason string) error {
	return r.next.CancelOrder(ctx, externalOrderID, reason)
}

func (r *RetryingConnector) GetWarehouses(ctx context.Context) ([]integration.SupplierWarehouse, error) {
	return retry(ctx, r, "get_warehouses", func() ([]integration.SupplierWarehouse, error) {
		return r.next.GetWarehouses(ctx)
	})
}

func (r *RetryingConnector) GetCategories(ctx context.Context) ([]integration.SupplierCategory, error) {
	return retry(ctx, r, "get_categories", func() ([]integration.SupplierCategory, error) {
		return r.next.GetCategories(ctx)
	})
}

func (r *RetryingConnector) GetBrands(ctx context.Context) ([]integration.SupplierBrand, error) {
	return retry(ctx, r, "get_brands", func() ([]integration.SupplierBrand, error) {
		return r.next.GetBrands(ctx)
	})
}

func (r *RetryingConnector) TestConnection(ctx context.Context) integration.ConnectionTestResult {
	return r.next.TestConnection(ctx)
}

var _ integration.SupplierConnector = (*RetryingConnector)(nil)
