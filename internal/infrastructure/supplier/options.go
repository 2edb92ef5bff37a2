package supplier

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
)

// maxResponseSize caps a supplier response body (10MB for APIs, feeds use feedMaxSize)
const maxResponseSize = 10 * 1024 * 1024

// Transport defaults
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultRateLimit      = 5.0
	DefaultBurst          = 5
)

// Options are the transport settings shared by the HTTP based connectors
type Options struct {
	Timeout time.Duration
	// RateLimit is requests per second per supplier; zero or less disables limiting
	RateLimit float64
	Burst     int
	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// OptionsFromConfig maps the supplier section of the configuration
func OptionsFromConfig(cfg config.SupplierConfig) Options {
	return Options{
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultRequestTimeout
	}
	if o.Burst <= 0 {
		o.Burst = DefaultBurst
	}
	return o
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.Timeout}
}

func (o Options) limiter() *rate.Limiter {
	if o.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, o.Burst)
	}
	return rate.NewLimiter(rate.Limit(o.RateLimit), o.Burst)
}

// parseBaseURL accepts absolute http(s) URLs and drops a trailing slash
func parseBaseURL(raw, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", shared.NewConfigurationError("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", shared.NewConfigurationError("%s must be an absolute http(s) URL: %q", field, raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// supplierName labels errors and logs for one connector instance
func supplierName(cfg integration.ConnectorConfig) string {
	if name := cfg.Options["name"]; name != "" {
		return name
	}
	return cfg.SupplierID.String()
}
