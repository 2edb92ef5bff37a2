package supplier

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
)

// Registry resolves connector type codes to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[integration.ConnectorType]integration.ConnectorFactory
	wrap      func(integration.SupplierConnector) integration.SupplierConnector
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithConnectorWrapper decorates every connector the registry builds
func WithConnectorWrapper(wrap func(integration.SupplierConnector) integration.SupplierConnector) RegistryOption {
	return func(r *Registry) {
		r.wrap = wrap
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{factories: make(map[integration.ConnectorType]integration.ConnectorFactory)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry registers the built-in connectors with transport and
// retry settings from configuration, then checks that every enabled code
// is known.
func NewDefaultRegistry(cfg *config.Config, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := OptionsFromConfig(cfg.Supplier)
	policy := RetryPolicyFromConfig(cfg.Supplier)
	r := NewRegistry(WithConnectorWrapper(func(c integration.SupplierConnector) integration.SupplierConnector {
		return NewRetryingConnector(c, policy, log.Named("supplier"))
	}))
	if err := r.Register(integration.ConnectorTypeHTTPJSON, NewHTTPJSONFactory(opts)); err != nil {
		return nil, err
	}
	if err := r.Register(integration.ConnectorTypeCSVFeed, NewCSVFeedFactory(opts)); err != nil {
		return nil, err
	}
	if err := r.Require(cfg.Connectors.Enabled); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a factory. A type code can be registered once.
func (r *Registry) Register(t integration.ConnectorType, factory integration.ConnectorFactory) error {
	if t == "" || factory == nil {
		return fmt.Errorf("register connector: type and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[t]; exists {
		return fmt.Errorf("register connector: %q already registered", t)
	}
	r.factories[t] = factory
	return nil
}

// Require fails with CONFIGURATION_ERROR naming every code that has no
// factory. It runs at startup so a misconfigured deployment never starts.
func (r *Registry) Require(codes []string) error {
	var unknown []string
	for _, code := range codes {
		if !r.Supports(integration.ConnectorType(code)) {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return shared.NewConfigurationError("unknown connector types %v (registered: %v)", unknown, r.Types())
	}
	return nil
}

// Connector builds the adapter for one supplier
func (r *Registry) Connector(t integration.ConnectorType, cfg integration.ConnectorConfig) (integration.SupplierConnector, error) {
	r.mu.RLock()
	factory, ok := r.factories[t]
	r.mu.RUnlock()
	if !ok {
		return nil, shared.NewConfigurationError("unknown connector type %q", t)
	}
	conn, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if r.wrap != nil {
		conn = r.wrap(conn)
	}
	return conn, nil
}

// Types lists registered codes in sorted order
func (r *Registry) Types() []integration.ConnectorType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]integration.ConnectorType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (r *Registry) Supports(t integration.ConnectorType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[t]
	return ok
}

var _ integration.ConnectorRegistry = (*Registry)(nil)
