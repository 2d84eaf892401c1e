package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusDelivered.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, OrderStatus("SHIPPED").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to delivered", StatusPending, StatusDelivered, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"delivered to pending", StatusDelivered, StatusPending, false},
		{"delivered to cancelled", StatusDelivered, StatusCancelled, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"cancelled to delivered", StatusCancelled, StatusDelivered, false},
		{"pending to pending is a no-op", StatusPending, StatusPending, true},
		{"delivered to delivered is a no-op", StatusDelivered, StatusDelivered, true},
		{"cancelled to cancelled is a no-op", StatusCancelled, StatusCancelled, true},
		{"pending to unknown", StatusPending, OrderStatus("SHIPPED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}
