package readstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"event-ticketing/internal/infra/db"
	"event-ticketing/internal/usecase/queries"
)

type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(dbtx db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: dbtx}
}

const orderViewColumns = `
	o.id, o.order_number, o.event_id, o.buyer_email, o.buyer_name, o.payment_status,
	o.subtotal_cents, o.discount_cents, o.fee_cents, o.total_cents, o.currency,
	o.is_partial_refund, o.refund_amount_cents, o.expires_at, o.paid_at, o.created_at,
	(SELECT count(*) FROM attendees a WHERE a.order_id = o.id AND a.status = 'active') AS attendee_count`

func (r *OrderReadStore) FindByNumber(ctx context.Context, orderNumber string) (*queries.OrderView, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+orderViewColumns+` FROM orders o WHERE o.order_number = $1`, orderNumber)
	return r.scanView(ctx, row)
}

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+orderViewColumns+` FROM orders o WHERE o.id = $1`, id)
	return r.scanView(ctx, row)
}

func (r *OrderReadStore) scanView(ctx context.Context, row pgx.Row) (*queries.OrderView, error) {
	var v queries.OrderView
	err := row.Scan(
		&v.ID, &v.OrderNumber, &v.EventID, &v.BuyerEmail, &v.BuyerName, &v.Status,
		&v.SubtotalCents, &v.DiscountCents, &v.FeeCents, &v.TotalCents, &v.Currency,
		&v.IsPartialRefund, &v.RefundAmountCents, &v.ExpiresAt, &v.PaidAt, &v.CreatedAt,
		&v.AttendeeCount,
	)
	if err != nil {
		return nil, wrapPgErr("order not found", err)
	}

	items, err := r.loadItemViews(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	v.Items = items
	return &v, nil
}

func (r *OrderReadStore) loadItemViews(ctx context.Context, orderID uuid.UUID) ([]queries.OrderItemView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.ticket_type_id, t.name, i.quantity, i.unit_price_cents, i.subtotal_cents
		FROM order_items i
		JOIN ticket_types t ON t.id = i.ticket_type_id
		WHERE i.order_id = $1
		ORDER BY t.name
	`, orderID)
	if err != nil {
		return nil, wrapPgErr("failed to load order item views", err)
	}
	defer rows.Close()

	var items []queries.OrderItemView
	for rows.Next() {
		var item queries.OrderItemView
		if err := rows.Scan(&item.TicketTypeID, &item.TicketTypeName, &item.Quantity,
			&item.UnitPriceCents, &item.SubtotalCents); err != nil {
			return nil, wrapPgErr("failed to scan order item view", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate order item views", err)
	}
	return items, nil
}

const orderListColumns = `id, order_number, buyer_email, payment_status, total_cents, currency, created_at`

func (r *OrderReadStore) ListByEventFirstPage(ctx context.Context, eventID uuid.UUID, status *string, limit int32) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderListColumns+`
		FROM orders
		WHERE event_id = $1 AND ($2::text IS NULL OR payment_status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, eventID, status, limit)
	if err != nil {
		return nil, wrapPgErr("failed to list orders first page", err)
	}
	return scanListItems(rows)
}

func (r *OrderReadStore) ListByEventKeyset(ctx context.Context, eventID uuid.UUID, status *string, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderListColumns+`
		FROM orders
		WHERE event_id = $1 AND ($2::text IS NULL OR payment_status = $2)
		  AND (created_at, id) < ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5
	`, eventID, status, lastCreatedAt, lastID, limit)
	if err != nil {
		return nil, wrapPgErr("failed to list orders keyset page", err)
	}
	return scanListItems(rows)
}

func scanListItems(rows pgx.Rows) ([]*queries.OrderListItem, error) {
	defer rows.Close()

	var items []*queries.OrderListItem
	for rows.Next() {
		var item queries.OrderListItem
		if err := rows.Scan(&item.ID, &item.OrderNumber, &item.BuyerEmail, &item.Status,
			&item.TotalCents, &item.Currency, &item.CreatedAt); err != nil {
			return nil, wrapPgErr("failed to scan order list item", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate order list items", err)
	}
	return items, nil
}

// ListExpiredPendingIDs feeds the reservation sweeper. SKIP LOCKED keeps the
// sweep from queueing behind a webhook that is settling the same order; the
// guarded transition re-checks the status anyway.
func (r *OrderReadStore) ListExpiredPendingIDs(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id
		FROM orders
		WHERE payment_status = 'pending' AND expires_at < $1
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, wrapPgErr("failed to list expired pending orders", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapPgErr("failed to scan expired order id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate expired order ids", err)
	}
	return ids, nil
}
