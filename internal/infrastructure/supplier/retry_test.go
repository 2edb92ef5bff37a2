package supplier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
)

// scriptedConnector fails calls with the queued errors, then succeeds
type scriptedConnector struct {
	integration.SupplierConnector
	errs  []error
	calls int
}

func (s *scriptedConnector) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedConnector) Type() integration.ConnectorType {
	return integration.ConnectorTypeHTTPJSON
}

func (s *scriptedConnector) GetPrices(context.Context, []string) ([]integration.SupplierPrice, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return []integration.SupplierPrice{{ExternalID: "A1"}}, nil
}

func (s *scriptedConnector) CreateOrder(context.Context, integration.SupplierOrderRequest) (*integration.SupplierOrderResult, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return &integration.SupplierOrderResult{OrderID: "1"}, nil
}

func (s *scriptedConnector) CancelOrder(context.Context, string, string) error {
	return s.next()
}

func newRetrying(inner integration.SupplierConnector, attempts int) (*RetryingConnector, *[]time.Duration) {
	var waits []time.Duration
	r := NewRetryingConnector(inner, RetryPolicy{Attempts: attempts, BaseBackoff: time.Second, MaxBackoff: 3 * time.Second}, nil)
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

var (
	errBusy    = integration.NewSupplierError(integration.ErrorKindServer, "acme", "get_prices", "busy", nil)
	errDenied  = integration.NewSupplierError(integration.ErrorKindAuth, "acme", "get_prices", "denied", nil)
	errLimited = integration.NewSupplierError(integration.ErrorKindRateLimited, "acme", "get_prices", "slow down", nil)
)

func TestRetryingConnector_RetriesTransientReads(t *testing.T) {
	inner := &scriptedConnector{errs: []error{errBusy, errLimited}}
	r, waits := newRetrying(inner, 3)

	prices, err := r.GetPrices(context.Background(), []string{"A1"})
	require.NoError(t, err)
	assert.Len(t, prices, 1)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestRetryingConnector_GivesUp(t *testing.T) {
	inner := &scriptedConnector{errs: []error{errBusy, errBusy, errBusy, errBusy}}
	r, waits := newRetrying(inner, 3)

	_, err := r.GetPrices(context.Background(), nil)
	assert.ErrorIs(t, err, integration.ErrSupplierServer)
	assert.Equal(t, 3, inner.calls)
	assert.Len(t, *waits, 2)
}

func TestRetryingConnector_PermanentErrorNotRetried(t *testing.T) {
	inner := &scriptedConnector{errs: []error{errDenied}}
	r, _ := newRetrying(inner, 5)

	_, err := r.GetPrices(context.Background(), nil)
	assert.ErrorIs(t, err, integration.ErrSupplierAuth)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingConnector_OrdersPassThrough(t *testing.T) {
	inner := &scriptedConnector{errs: []error{errBusy, errBusy}}
	r, waits := newRetrying(inner, 5)
	ctx := context.Background()

	_, err := r.CreateOrder(ctx, integration.SupplierOrderRequest{})
	assert.ErrorIs(t, err, integration.ErrSupplierServer)
	assert.ErrorIs(t, r.CancelOrder(ctx, "1", ""), integration.ErrSupplierServer)
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, *waits)
}

func TestRetryingConnector_StopsOnCancelledContext(t *testing.T) {
	inner := &scriptedConnector{errs: []error{errBusy, errBusy}}
	r := NewRetryingConnector(inner, RetryPolicy{Attempts: 3, BaseBackoff: time.Hour, MaxBackoff: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetPrices(ctx, nil)
	assert.True(t, errors.Is(err, integration.ErrSupplierServer))
	assert.Equal(t, 1, inner.calls)
}
