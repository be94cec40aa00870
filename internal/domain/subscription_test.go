package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatusFromStripe(t *testing.T) {
	cases := []struct {
		stripeStatus string
		want         SubscriptionStatus
	}{
		{"active", SubscriptionStatusActive},
		{"trialing", SubscriptionStatusTrialing},
		{"past_due", SubscriptionStatusPastDue},
		{"canceled", SubscriptionStatusCanceled},
		{"unpaid", SubscriptionStatusUnpaid},
		{"incomplete", SubscriptionStatusIncomplete},
		{"incomplete_expired", SubscriptionStatusIncompleteExpired},
		{"paused", SubscriptionStatusPaused},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SubscriptionStatusFromStripe(tc.stripeStatus))
	}
}

func TestSubscriptionStatusFromStripe_UnknownStatusPassesThrough(t *testing.T) {
	// New Stripe statuses are mirrored uppercased instead of being rejected
	assert.Equal(t, SubscriptionStatus("SOME_FUTURE_STATUS"), SubscriptionStatusFromStripe("some_future_status"))
}
