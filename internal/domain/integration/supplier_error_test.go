package integration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupplierError_Transient(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		transient bool
	}{
		{ErrorKindAuth, false},
		{ErrorKindNotFound, false},
		{ErrorKindValidation, false},
		{ErrorKindRateLimited, true},
		{ErrorKindServer, true},
		{ErrorKindNetwork, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := NewSupplierError(tt.kind, "acme", "get_prices", "boom", nil)
			assert.Equal(t, tt.transient, err.Transient())
			assert.Equal(t, tt.transient, IsTransient(fmt.Errorf("wrapped: %w", err)))
		})
	}
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestSupplierError_IsMatchesKind(t *testing.T) {
	err := NewSupplierError(ErrorKindRateLimited, "acme", "get_stock", "slow down", nil)

	assert.True(t, errors.Is(err, ErrSupplierRateLimited))
	assert.False(t, errors.Is(err, ErrSupplierServer))
	assert.Contains(t, err.Error(), "acme get_stock")
}

func TestKindFromStatus(t *testing.T) {
	assert.Equal(t, ErrorKindAuth, KindFromStatus(401))
	assert.Equal(t, ErrorKindAuth, KindFromStatus(403))
	assert.Equal(t, ErrorKindNotFound, KindFromStatus(404))
	assert.Equal(t, ErrorKindRateLimited, KindFromStatus(429))
	assert.Equal(t, ErrorKindServer, KindFromStatus(503))
	assert.Equal(t, ErrorKindValidation, KindFromStatus(422))
}
