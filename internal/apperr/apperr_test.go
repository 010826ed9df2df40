package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Business("cart is empty"), http.StatusBadRequest},
		{NotFound("no such order"), http.StatusNotFound},
		{Auth("token expired"), http.StatusUnauthorized},
		{Forbidden("admins only"), http.StatusForbidden},
		{Conflict("duplicate phone"), http.StatusConflict},
		{Upstream("provider down", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("plain error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), "error %v", tt.err)
	}
}

func TestStatus_WrappedChain(t *testing.T) {
	err := fmt.Errorf("handling request: %w", NotFound("no such product"))
	assert.Equal(t, http.StatusNotFound, Status(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindValidation))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Cart is empty", Message(Business("Cart is empty")))

	// Underlying cause never leaks through Message.
	err := Upstream("Failed to initiate MPESA payment", errors.New("dial tcp: connection refused"))
	assert.Equal(t, "Failed to initiate MPESA payment", Message(err))

	assert.Equal(t, "Internal server error", Message(errors.New("sql: bad connection")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(KindUpstream, "wrapped", cause)
	assert.ErrorIs(t, err, cause)
}
