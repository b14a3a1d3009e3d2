package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/ticket"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/infra/db"
)

type InventoryRepository struct {
	db db.DBTX
}

func NewInventoryRepository(dbtx db.DBTX) *InventoryRepository {
	return &InventoryRepository{db: dbtx}
}

// LockForOrder locks ticket-type rows in ascending id order. Every writer
// that touches more than one row uses the same order, so concurrent orders
// cannot deadlock on each other.
func (r *InventoryRepository) LockForOrder(ctx context.Context, ids []uuid.UUID) ([]*ticket.TicketType, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_id, name, price_cents, currency, capacity,
		       sold, reserved, max_per_order, sales_start, sales_end, is_active
		FROM ticket_types
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, wrapPgErr("failed to lock ticket types", err)
	}
	defer rows.Close()

	var types []*ticket.TicketType
	for rows.Next() {
		var (
			id, eventID                 uuid.UUID
			name, currency              string
			priceCents                  int64
			capacity                    *int32
			sold, reserved, maxPerOrder int32
			salesStart, salesEnd        *time.Time
			isActive                    bool
		)
		if err := rows.Scan(&id, &eventID, &name, &priceCents, &currency, &capacity,
			&sold, &reserved, &maxPerOrder, &salesStart, &salesEnd, &isActive); err != nil {
			return nil, wrapPgErr("failed to scan ticket type", err)
		}
		t, err := ticket.Reconstruct(id, eventID, name, priceCents, currency, capacity,
			sold, reserved, maxPerOrder, salesStart, salesEnd, isActive)
		if err != nil {
			return nil, infra.WrapRepoErr("stored ticket type is inconsistent", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate ticket types", err)
	}
	return types, nil
}

// Reserve re-checks capacity inside the row predicate even though callers
// hold the row lock; sold + reserved <= capacity can never be violated.
func (r *InventoryRepository) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error {
	return r.guardedCounterUpdate(ctx, "failed to reserve inventory", `
		UPDATE ticket_types
		SET reserved = reserved + $2, updated_at = now()
		WHERE id = $1
		  AND is_active
		  AND (capacity IS NULL OR sold + reserved + $2 <= capacity)
	`, ticketTypeID, quantity)
}

func (r *InventoryRepository) ConvertReservedToSold(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error {
	return r.guardedCounterUpdate(ctx, "failed to convert reservation to sale", `
		UPDATE ticket_types
		SET reserved = reserved - $2, sold = sold + $2, updated_at = now()
		WHERE id = $1 AND reserved >= $2
	`, ticketTypeID, quantity)
}

func (r *InventoryRepository) ReleaseReserved(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error {
	return r.guardedCounterUpdate(ctx, "failed to release reservation", `
		UPDATE ticket_types
		SET reserved = reserved - $2, updated_at = now()
		WHERE id = $1 AND reserved >= $2
	`, ticketTypeID, quantity)
}

func (r *InventoryRepository) RollbackSold(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error {
	return r.guardedCounterUpdate(ctx, "failed to roll back sold count", `
		UPDATE ticket_types
		SET sold = sold - $2, updated_at = now()
		WHERE id = $1 AND sold >= $2
	`, ticketTypeID, quantity)
}

func (r *InventoryRepository) guardedCounterUpdate(ctx context.Context, msg, sql string, ticketTypeID uuid.UUID, quantity int32) error {
	tag, err := r.db.Exec(ctx, sql, ticketTypeID, quantity)
	if err != nil {
		return wrapPgErr(msg, err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(msg, nil, infra.KindConflict)
	}
	return nil
}
