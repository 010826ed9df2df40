package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionPayment(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPending, PaymentRefunded, false},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentPaid, PaymentFailed, false},
		{PaymentFailed, PaymentPaid, false},
		{PaymentFailed, PaymentPending, false},
		{PaymentRefunded, PaymentPaid, false},
		{PaymentRefunded, PaymentPending, false},
	}
	for _, tt := range tests {
		got := CanTransitionPayment(tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodCOD))
	assert.True(t, ValidPaymentMethod(PaymentMethodMpesa))
	assert.True(t, ValidPaymentMethod(PaymentMethodStripe))
	assert.False(t, ValidPaymentMethod("BITCOIN"))
	assert.False(t, ValidPaymentMethod(""))
	assert.False(t, ValidPaymentMethod("mpesa"), "methods are case-sensitive after normalization")
}

func TestValidDeliveryStatus(t *testing.T) {
	for _, s := range []DeliveryStatus{DeliveryPending, DeliveryDispatched, DeliveryDelivered, DeliveryCancelled} {
		assert.True(t, ValidDeliveryStatus(s))
	}
	assert.False(t, ValidDeliveryStatus("SHIPPED"))
	assert.False(t, ValidDeliveryStatus(""))
}
