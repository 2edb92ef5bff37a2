package supplier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
)

func registryConfig(enabled ...string) *config.Config {
	return &config.Config{
		Supplier:   config.SupplierConfig{RetryAttempts: 2},
		Connectors: config.ConnectorsConfig{Enabled: enabled},
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(registryConfig("http_json", "csv_feed"), nil)
	require.NoError(t, err)

	assert.Equal(t, []integration.ConnectorType{integration.ConnectorTypeCSVFeed, integration.ConnectorTypeHTTPJSON}, r.Types())
	assert.True(t, r.Supports(integration.ConnectorTypeHTTPJSON))
	assert.False(t, r.Supports("ftp"))

	conn, err := r.Connector(integration.ConnectorTypeHTTPJSON, integration.ConnectorConfig{BaseURL: "https://supplier.example", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &RetryingConnector{}, conn)
	assert.Equal(t, integration.ConnectorTypeHTTPJSON, conn.Type())
}

func TestNewDefaultRegistry_FailsFastOnUnknownCode(t *testing.T) {
	_, err := NewDefaultRegistry(registryConfig("http_json", "soap_legacy"), nil)
	require.Error(t, err)
	assert.Equal(t, shared.CodeConfiguration, shared.CodeOf(err))
	assert.Contains(t, err.Error(), "soap_legacy")
}

func TestRegistry_Connector(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(integration.ConnectorTypeCSVFeed, NewCSVFeedFactory(Options{})))
	assert.Error(t, r.Register(integration.ConnectorTypeCSVFeed, NewCSVFeedFactory(Options{})), "duplicate registration")

	_, err := r.Connector("ftp", integration.ConnectorConfig{})
	assert.Equal(t, shared.CodeConfiguration, shared.CodeOf(err))

	_, err = r.Connector(integration.ConnectorTypeCSVFeed, integration.ConnectorConfig{})
	assert.Equal(t, shared.CodeConfiguration, shared.CodeOf(err), "factory validation surfaces")

	conn, err := r.Connector(integration.ConnectorTypeCSVFeed, integration.ConnectorConfig{BaseURL: "https://x/f.csv"})
	require.NoError(t, err)
	assert.IsType(t, &CSVFeedConnector{}, conn)
}
