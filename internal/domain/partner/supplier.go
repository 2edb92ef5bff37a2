package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// SupplierStatus represents the status of a supplier
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "active"
	SupplierStatusInactive SupplierStatus = "inactive"
)

// ConnectorSettings are the typed adapter settings stored with a supplier
type ConnectorSettings struct {
	BaseURL  string            `json:"base_url,omitempty" validate:"omitempty,url"`
	APIKey   string            `json:"api_key,omitempty"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Currency string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Options  map[string]string `json:"options,omitempty"`
}

// Supplier is an external source of products, prices and stock, reached
// through a connector. Each supplier owns one virtual warehouse that
// mirrors its drop-ship stock.
type Supplier struct {
	shared.TenantAggregateRoot
	Code               string                                `gorm:"type:varchar(50);not null"`
	Name               string                                `gorm:"type:varchar(200);not null"`
	Status             SupplierStatus                        `gorm:"type:varchar(20);not null;default:'active'"`
	ConnectorType      integration.ConnectorType             `gorm:"type:varchar(50);not null"`
	Settings           datatypes.JSONType[ConnectorSettings] `gorm:"not null"`
	VirtualWarehouseID *uuid.UUID                            `gorm:"type:uuid"`
	LastSyncAt         *time.Time
}

func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a supplier bound to a connector type
func NewSupplier(tenantID uuid.UUID, code, name string, connectorType integration.ConnectorType, settings ConnectorSettings) (*Supplier, error) {
	code = NormalizeCode(code)
	if code == "" || len(code) > maxCodeLen {
		return nil, shared.NewValidationError("supplier code must be 1-%d characters", maxCodeLen)
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("supplier name cannot be empty")
	}
	if connectorType == "" {
		return nil, shared.NewValidationError("connector type is required")
	}
	if err := shared.ValidateStruct(settings); err != nil {
		return nil, err
	}

	s := &Supplier{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		Status:              SupplierStatusActive,
		ConnectorType:       connectorType,
		Settings:            datatypes.NewJSONType(settings),
	}
	return s, nil
}

// AttachVirtualWarehouse links the supplier to its drop-ship warehouse
func (s *Supplier) AttachVirtualWarehouse(warehouseID uuid.UUID) {
	s.VirtualWarehouseID = &warehouseID
	s.IncrementVersion()
}

// UpdateSettings replaces the connector settings after validation
func (s *Supplier) UpdateSettings(settings ConnectorSettings) error {
	if err := shared.ValidateStruct(settings); err != nil {
		return err
	}
	s.Settings = datatypes.NewJSONType(settings)
	s.IncrementVersion()
	return nil
}

// MarkSynced records a finished catalog sync
func (s *Supplier) MarkSynced(at time.Time) {
	s.LastSyncAt = &at
	s.Touch()
}

// Deactivate stops the supplier from being synced or ordered from
func (s *Supplier) Deactivate() {
	s.Status = SupplierStatusInactive
	s.IncrementVersion()
}

func (s *Supplier) IsActive() bool {
	return s.Status == SupplierStatusActive
}

// ConnectorConfig builds the adapter configuration for this supplier
func (s *Supplier) ConnectorConfig() integration.ConnectorConfig {
	st := s.Settings.Data()
	return integration.ConnectorConfig{
		SupplierID: s.ID,
		TenantID:   s.TenantID,
		BaseURL:    st.BaseURL,
		APIKey:     st.APIKey,
		Username:   st.Username,
		Password:   st.Password,
		Options:    st.Options,
	}
}
