package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const TenantHeader = "X-Tenant-ID"

// HTTPTestCase is one request against a router and what it should answer.
// A zero ExpectedStatus or empty ExpectedCode is not checked.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           any
	Tenant         uuid.UUID
	ExpectedStatus int
	ExpectedCode   string
	Validate       func(t *testing.T, w *httptest.ResponseRecorder)
}

func RunHTTPTestCases(t *testing.T, router http.Handler, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			w := Do(t, router, tc.Method, tc.Path, tc.Body, tc.Tenant)
			if tc.ExpectedStatus != 0 {
				assert.Equal(t, tc.ExpectedStatus, w.Code, "body: %s", w.Body.String())
			}
			if tc.ExpectedCode != "" {
				AssertErrorResponse(t, w, tc.ExpectedCode)
			}
			if tc.Validate != nil {
				tc.Validate(t, w)
			}
		})
	}
}

// Do sends body as JSON. uuid.Nil leaves the tenant header out.
func Do(t *testing.T, router http.Handler, method, path string, body any, tenant uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	if method == "" {
		method = http.MethodGet
	}
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenant != uuid.Nil {
		req.Header.Set(TenantHeader, tenant.String())
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func JSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return JSONResponseAs[map[string]any](t, w)
}

func JSONResponseAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// AssertErrorResponse checks the error envelope carries code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, code string) {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error, "body: %s", w.Body.String())
	assert.Equal(t, code, envelope.Error.Code)
}
