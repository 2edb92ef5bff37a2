package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

func tenantRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Tenant("/health"))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "up") })
	r.GET("/api/v1/things", func(c *gin.Context) {
		id, ok := GetTenantID(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, id.String()+"|"+logger.GetTenantID(c.Request.Context()))
	})
	return r
}

func TestTenant(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"valid header", "/api/v1/things", tenantID.String(), http.StatusOK, tenantID.String() + "|" + tenantID.String()},
		{"missing header", "/api/v1/things", "", http.StatusBadRequest, "TENANT_REQUIRED"},
		{"malformed header", "/api/v1/things", "tenant-1", http.StatusBadRequest, "TENANT_REQUIRED"},
		{"nil uuid", "/api/v1/things", uuid.Nil.String(), http.StatusBadRequest, "TENANT_REQUIRED"},
		{"skipped path", "/health", "", http.StatusOK, "up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(logger.HeaderTenantID, tt.header)
			}
			w := httptest.NewRecorder()
			tenantRouter().ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}
