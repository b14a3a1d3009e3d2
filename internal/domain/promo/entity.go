package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/order"
)

var (
	ErrInactive     = errors.New("promo code is inactive")
	ErrNotYetValid  = errors.New("promo code is not yet valid")
	ErrExpired      = errors.New("promo code has expired")
	ErrExhausted    = errors.New("promo code has reached its usage limit")
	ErrInvalidValue = errors.New("invalid discount value")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode belongs to one event; codes match case-insensitively.
type PromoCode struct {
	id            uuid.UUID
	eventID       uuid.UUID
	code          string
	discountType  DiscountType
	discountValue int64
	maxUses       *int32
	usedCount     int32
	validFrom     *time.Time
	validUntil    *time.Time
	isActive      bool
}

func Reconstruct(
	id, eventID uuid.UUID,
	code string,
	discountType DiscountType,
	discountValue int64,
	maxUses *int32,
	usedCount int32,
	validFrom, validUntil *time.Time,
	isActive bool,
) (*PromoCode, error) {
	if discountValue <= 0 {
		return nil, ErrInvalidValue
	}
	if discountType == DiscountPercentage && discountValue > 100 {
		return nil, ErrInvalidValue
	}
	return &PromoCode{
		id:            id,
		eventID:       eventID,
		code:          code,
		discountType:  discountType,
		discountValue: discountValue,
		maxUses:       maxUses,
		usedCount:     usedCount,
		validFrom:     validFrom,
		validUntil:    validUntil,
		isActive:      isActive,
	}, nil
}

// Normalize is the canonical form used for lookups and the unique index.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func (p *PromoCode) ValidateUsage(now time.Time) error {
	if !p.isActive {
		return ErrInactive
	}
	if p.validFrom != nil && now.Before(*p.validFrom) {
		return ErrNotYetValid
	}
	if p.validUntil != nil && now.After(*p.validUntil) {
		return ErrExpired
	}
	if p.maxUses != nil && p.usedCount >= *p.maxUses {
		return ErrExhausted
	}
	return nil
}

// DiscountFor computes the discount in cents for a given subtotal:
// percentage discounts round half up, fixed discounts clamp to the subtotal.
func (p *PromoCode) DiscountFor(subtotalCents int64) int64 {
	switch p.discountType {
	case DiscountPercentage:
		return order.RoundRateBps(subtotalCents, p.discountValue*100)
	case DiscountFixed:
		if p.discountValue > subtotalCents {
			return subtotalCents
		}
		return p.discountValue
	default:
		return 0
	}
}

func (p *PromoCode) ID() uuid.UUID              { return p.id }
func (p *PromoCode) EventID() uuid.UUID         { return p.eventID }
func (p *PromoCode) Code() string               { return p.code }
func (p *PromoCode) Type() DiscountType         { return p.discountType }
func (p *PromoCode) Value() int64               { return p.discountValue }
func (p *PromoCode) MaxUses() *int32            { return p.maxUses }
func (p *PromoCode) UsedCount() int32           { return p.usedCount }
func (p *PromoCode) ValidFrom() *time.Time      { return p.validFrom }
func (p *PromoCode) ValidUntil() *time.Time     { return p.validUntil }
func (p *PromoCode) IsActive() bool             { return p.isActive }
