package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	discounted := 80.0
	tooHigh := 120.0

	assert.Equal(t, 100.0, (&Product{Price: 100}).EffectivePrice())
	assert.Equal(t, 80.0, (&Product{Price: 100, DiscountedPrice: &discounted}).EffectivePrice())
	assert.Equal(t, 100.0, (&Product{Price: 100, DiscountedPrice: &tooHigh}).EffectivePrice())
}

func TestIsForwardTransition(t *testing.T) {
	assert.True(t, IsForwardTransition(OrderPending, OrderConfirmed))
	assert.True(t, IsForwardTransition(OrderShipped, OrderDelivered))
	assert.True(t, IsForwardTransition(OrderShipped, OrderShipped))
	assert.True(t, IsForwardTransition(OrderProcessing, OrderCancelled))
	assert.False(t, IsForwardTransition(OrderShipped, OrderPending))
	assert.False(t, IsForwardTransition(OrderCancelled, OrderPending))
}

func TestCanBeCancelled(t *testing.T) {
	for _, s := range []string{OrderPending, OrderConfirmed, OrderProcessing, OrderReturned} {
		assert.True(t, CanBeCancelled(s), s)
	}
	for _, s := range []string{OrderShipped, OrderDelivered, OrderCancelled} {
		assert.False(t, CanBeCancelled(s), s)
	}
}

func TestMembershipTier(t *testing.T) {
	assert.Equal(t, TierBronze, MembershipTier(0))
	assert.Equal(t, TierSilver, MembershipTier(10000))
	assert.Equal(t, TierGold, MembershipTier(75000))
	assert.Equal(t, TierPlatinum, MembershipTier(100000))
}
