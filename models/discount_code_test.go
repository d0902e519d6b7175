package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestDiscountCodeValidate(t *testing.T) {
	ok := &DiscountCode{Code: "SAVE10", DiscountPercentage: intPtr(10)}
	assert.NoError(t, ok.Validate())

	both := &DiscountCode{Code: "BOTH", DiscountPercentage: intPtr(10), DiscountAmountCents: int64Ptr(500)}
	assert.Error(t, both.Validate())

	neither := &DiscountCode{Code: "NONE"}
	assert.Error(t, neither.Validate())

	tooMuch := &DiscountCode{Code: "BIG", DiscountPercentage: intPtr(150)}
	assert.Error(t, tooMuch.Validate())

	noUses := &DiscountCode{Code: "ZERO", DiscountAmountCents: int64Ptr(500), MaxTotalUses: intPtr(0)}
	assert.Error(t, noUses.Validate())
}

func TestUsedByTracksEmailsAndFirstUser(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	dc := &DiscountCode{Code: "SAVE10", DiscountPercentage: intPtr(10)}
	dc.MarkRedeemed("order-1", "First@Example.com", &first, at)
	dc.MarkRedeemed("order-2", "second@example.com", &second, at)

	assert.True(t, dc.Used)
	assert.Equal(t, 2, dc.UseCount)
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, []string(dc.UsedByEmail))
	require.NotNil(t, dc.UsedByUserID)
	assert.Equal(t, first, *dc.UsedByUserID, "only the first user id is kept")

	assert.True(t, dc.UsedBy("FIRST@example.com", nil))
	assert.True(t, dc.UsedBy("", &first))
	assert.False(t, dc.UsedBy("", &second))
	assert.False(t, dc.UsedBy("third@example.com", nil))
}

func TestExpiryAndExhaustion(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&DiscountCode{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&DiscountCode{ExpiresAt: &future}).IsExpired(now))
	assert.False(t, (&DiscountCode{}).IsExpired(now))

	assert.True(t, (&DiscountCode{MaxTotalUses: intPtr(2), UseCount: 2}).UsageExhausted())
	assert.False(t, (&DiscountCode{MaxTotalUses: intPtr(2), UseCount: 1}).UsageExhausted())
	assert.False(t, (&DiscountCode{UseCount: 100}).UsageExhausted())
}

func TestNewCustomerDiscount(t *testing.T) {
	d := NewCustomerDiscount()
	assert.Equal(t, NewCustomerPromoID, d.ID)
	assert.Equal(t, "NEW20", d.Code)
	require.NotNil(t, d.DiscountPercentage)
	assert.Equal(t, 20, *d.DiscountPercentage)
	assert.Nil(t, d.ExpiresAt)
}
