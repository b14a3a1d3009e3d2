//go:build unit

package promo_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing/internal/domain/promo"
)

type promoParams struct {
	discountType  promo.DiscountType
	discountValue int64
	maxUses       *int32
	usedCount     int32
	validFrom     *time.Time
	validUntil    *time.Time
	isActive      bool
}

func buildPromo(t *testing.T, mutate func(p *promoParams)) *promo.PromoCode {
	t.Helper()

	p := &promoParams{
		discountType:  promo.DiscountPercentage,
		discountValue: 20,
		isActive:      true,
	}
	if mutate != nil {
		mutate(p)
	}

	pc, err := promo.Reconstruct(
		uuid.New(), uuid.New(), "SUMMER20",
		p.discountType, p.discountValue, p.maxUses, p.usedCount,
		p.validFrom, p.validUntil, p.isActive,
	)
	require.NoError(t, err)
	return pc
}

func intPtr(v int32) *int32 { return &v }

func TestNormalize(t *testing.T) {
	assert.Equal(t, "summer20", promo.Normalize("SUMMER20"))
	assert.Equal(t, "summer20", promo.Normalize("  Summer20 "))
	assert.Equal(t, "", promo.Normalize("   "))
}

func TestReconstruct(t *testing.T) {
	_, err := promo.Reconstruct(uuid.New(), uuid.New(), "X", promo.DiscountPercentage, 0, nil, 0, nil, nil, true)
	assert.ErrorIs(t, err, promo.ErrInvalidValue)

	_, err = promo.Reconstruct(uuid.New(), uuid.New(), "X", promo.DiscountPercentage, 101, nil, 0, nil, nil, true)
	assert.ErrorIs(t, err, promo.ErrInvalidValue)

	_, err = promo.Reconstruct(uuid.New(), uuid.New(), "X", promo.DiscountFixed, 150000, nil, 0, nil, nil, true)
	assert.NoError(t, err)
}

func TestValidateUsage(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("valid", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) {
			p.validFrom = &past
			p.validUntil = &future
			p.maxUses = intPtr(10)
			p.usedCount = 9
		})
		assert.NoError(t, p.ValidateUsage(now))
	})

	t.Run("inactive", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) { p.isActive = false })
		assert.ErrorIs(t, p.ValidateUsage(now), promo.ErrInactive)
	})

	t.Run("not yet valid", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) { p.validFrom = &future })
		assert.ErrorIs(t, p.ValidateUsage(now), promo.ErrNotYetValid)
	})

	t.Run("expired", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) { p.validUntil = &past })
		assert.ErrorIs(t, p.ValidateUsage(now), promo.ErrExpired)
	})

	t.Run("exhausted", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) { p.maxUses = intPtr(5); p.usedCount = 5 })
		assert.ErrorIs(t, p.ValidateUsage(now), promo.ErrExhausted)
	})

	t.Run("unlimited uses", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) { p.usedCount = 1 << 20 })
		assert.NoError(t, p.ValidateUsage(now))
	})
}

func TestDiscountFor(t *testing.T) {
	t.Run("percentage rounds half up", func(t *testing.T) {
		p := buildPromo(t, nil) // 20%
		assert.Equal(t, int64(2000), p.DiscountFor(10000))

		odd := buildPromo(t, func(p *promoParams) { p.discountValue = 15 })
		// 15% of 333 = 49.95 -> 50
		assert.Equal(t, int64(50), odd.DiscountFor(333))
	})

	t.Run("fixed clamps to subtotal", func(t *testing.T) {
		p := buildPromo(t, func(p *promoParams) {
			p.discountType = promo.DiscountFixed
			p.discountValue = 1500
		})
		assert.Equal(t, int64(1500), p.DiscountFor(10000))
		assert.Equal(t, int64(800), p.DiscountFor(800))
	})

	t.Run("zero subtotal", func(t *testing.T) {
		p := buildPromo(t, nil)
		assert.Equal(t, int64(0), p.DiscountFor(0))
	})
}
