package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/promo"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/infra/db"
)

type PromoRepository struct {
	db db.DBTX
}

func NewPromoRepository(dbtx db.DBTX) *PromoRepository {
	return &PromoRepository{db: dbtx}
}

func (r *PromoRepository) FindByCodeForUpdate(ctx context.Context, eventID uuid.UUID, normalizedCode string) (*promo.PromoCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, event_id, code, discount_type, discount_value,
		       max_uses, used_count, valid_from, valid_until, is_active
		FROM promo_codes
		WHERE event_id = $1 AND lower(code) = $2
		FOR UPDATE
	`, eventID, normalizedCode)

	var (
		id, evID               uuid.UUID
		code, discountType     string
		discountValue          int64
		maxUses                *int32
		usedCount              int32
		validFrom, validUntil  *time.Time
		isActive               bool
	)
	if err := row.Scan(&id, &evID, &code, &discountType, &discountValue,
		&maxUses, &usedCount, &validFrom, &validUntil, &isActive); err != nil {
		return nil, wrapPgErr("promo code not found", err)
	}

	p, err := promo.Reconstruct(id, evID, code, promo.DiscountType(discountType), discountValue,
		maxUses, usedCount, validFrom, validUntil, isActive)
	if err != nil {
		return nil, infra.WrapRepoErr("stored promo code is inconsistent", err)
	}
	return p, nil
}

// IncrementUsage re-checks max_uses in the predicate; a concurrent order may
// have consumed the last use between validation and here.
func (r *PromoRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
	`, id)
	if err != nil {
		return wrapPgErr("failed to increment promo usage", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("promo code usage limit reached", nil, infra.KindConflict)
	}
	return nil
}
