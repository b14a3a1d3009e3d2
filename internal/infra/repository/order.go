package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/infra"
	"event-ticketing/internal/infra/db"
	"event-ticketing/internal/usecase/shared"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

const orderColumns = `
	id, order_number, event_id, buyer_email, buyer_name, buyer_phone,
	subtotal_cents, discount_cents, fee_cents, total_cents, currency,
	payment_status, promo_code_id, gateway_session_id, session_url,
	session_expires_at, gateway_payment_id, refund_id, refund_amount_cents,
	refund_reason, is_partial_refund, expires_at, paid_at, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	b := o.Breakdown()
	// ON CONFLICT keeps a number collision from aborting the surrounding
	// transaction, so the caller can retry with a fresh number in place.
	tag, err := r.db.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, event_id, buyer_email, buyer_name, buyer_phone,
			subtotal_cents, discount_cents, fee_cents, total_cents, currency,
			payment_status, promo_code_id, is_partial_refund,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, $14, $15, $15)
		ON CONFLICT (order_number) DO NOTHING
	`,
		o.ID(), o.OrderNumber(), o.EventID(),
		o.Buyer().Email(), o.Buyer().Name(), nullableString(o.Buyer().Phone()),
		b.SubtotalCents, b.DiscountCents, b.FeeCents, b.TotalCents, o.Currency(),
		o.Status().String(), o.PromoCodeID(),
		o.ExpiresAt(), o.CreatedAt(),
	)
	if err != nil {
		return wrapPgErr("failed to insert order", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order number already taken", nil, infra.KindDuplicateKey)
	}

	for _, item := range o.Items() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, ticket_type_id, quantity, unit_price_cents, subtotal_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), o.ID(), item.TicketTypeID(), item.Quantity(), item.UnitPriceCents(), item.SubtotalCents())
		if err != nil {
			return wrapPgErr("failed to insert order item", err)
		}
	}
	return nil
}

func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return r.scanOrderWithItems(ctx, row)
}

func (r *OrderRepository) FindByGatewayRefForUpdate(ctx context.Context, sessionID, paymentID string) (*order.Order, error) {
	// Session id is the primary correlation key; payment id covers refund
	// events that no longer carry the session.
	row := r.db.QueryRow(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE ($1 <> '' AND gateway_session_id = $1)
		   OR ($2 <> '' AND gateway_payment_id = $2)
		ORDER BY (gateway_session_id = $1) DESC
		LIMIT 1
		FOR UPDATE
	`, sessionID, paymentID)
	return r.scanOrderWithItems(ctx, row)
}

func (r *OrderRepository) AttachSession(ctx context.Context, id uuid.UUID, sessionID, sessionURL string, sessionExpiresAt *time.Time) error {
	return r.guardedUpdate(ctx, "failed to attach checkout session", `
		UPDATE orders
		SET payment_status = $2, gateway_session_id = $3, session_url = $4,
		    session_expires_at = $5, updated_at = now()
		WHERE id = $1 AND payment_status = ANY($6)
	`, id, order.StatusProcessing.String(), sessionID, sessionURL, sessionExpiresAt,
		// processing stays legal so an expired session can be replaced.
		[]string{order.StatusPending.String(), order.StatusProcessing.String()})
}

func (r *OrderRepository) MarkCompleted(ctx context.Context, id uuid.UUID, gatewayPaymentID string, paidAt time.Time) error {
	return r.guardedUpdate(ctx, "failed to mark order completed", `
		UPDATE orders
		SET payment_status = $2, gateway_payment_id = $3, paid_at = $4, updated_at = now()
		WHERE id = $1 AND payment_status = ANY($5)
	`, id, order.StatusCompleted.String(), gatewayPaymentID, paidAt,
		sourceStatuses(order.StatusCompleted))
}

func (r *OrderRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.guardedUpdate(ctx, "failed to mark order failed", `
		UPDATE orders
		SET payment_status = $2, updated_at = now()
		WHERE id = $1 AND payment_status = ANY($3)
	`, id, order.StatusFailed.String(), sourceStatuses(order.StatusFailed))
}

func (r *OrderRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	return r.guardedUpdate(ctx, "failed to mark order cancelled", `
		UPDATE orders
		SET payment_status = $2, updated_at = now()
		WHERE id = $1 AND payment_status = ANY($3)
	`, id, order.StatusCancelled.String(), sourceStatuses(order.StatusCancelled))
}

func (r *OrderRepository) MarkRefunded(ctx context.Context, id uuid.UUID, refund order.Refund) error {
	return r.guardedUpdate(ctx, "failed to mark order refunded", `
		UPDATE orders
		SET payment_status = $2, refund_id = $3, refund_amount_cents = $4,
		    refund_reason = $5, is_partial_refund = false, updated_at = now()
		WHERE id = $1 AND payment_status = ANY($6)
	`, id, order.StatusRefunded.String(), refund.ID, refund.AmountCents,
		nullableString(refund.Reason), sourceStatuses(order.StatusRefunded))
}

func (r *OrderRepository) RecordPartialRefund(ctx context.Context, id uuid.UUID, refund order.Refund) error {
	// Partial refunds leave payment_status at completed and touch only the
	// audit fields.
	return r.guardedUpdate(ctx, "failed to record partial refund", `
		UPDATE orders
		SET refund_id = $2, refund_amount_cents = $3, refund_reason = $4,
		    is_partial_refund = true, updated_at = now()
		WHERE id = $1 AND payment_status = $5
	`, id, refund.ID, refund.AmountCents, nullableString(refund.Reason),
		order.StatusCompleted.String())
}

func (r *OrderRepository) guardedUpdate(ctx context.Context, msg, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return wrapPgErr(msg, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleTransition
	}
	return nil
}

func sourceStatuses(to order.Status) []string {
	sources := order.TransitionSources(to)
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.String()
	}
	return out
}

func (r *OrderRepository) scanOrderWithItems(ctx context.Context, row interface{ Scan(...any) error }) (*order.Order, error) {
	var (
		id, eventID                        uuid.UUID
		orderNumber, buyerEmail, buyerName string
		buyerPhone                         *string
		subtotal, discount, fee, total     int64
		currency, status                   string
		promoCodeID                        *uuid.UUID
		sessionID, sessionURL              *string
		sessionExpiresAt                   *time.Time
		paymentID, refundID                *string
		refundAmount                       *int64
		refundReason                       *string
		isPartialRefund                    bool
		expiresAt                          time.Time
		paidAt                             *time.Time
		createdAt, updatedAt               time.Time
	)
	err := row.Scan(
		&id, &orderNumber, &eventID, &buyerEmail, &buyerName, &buyerPhone,
		&subtotal, &discount, &fee, &total, &currency,
		&status, &promoCodeID, &sessionID, &sessionURL,
		&sessionExpiresAt, &paymentID, &refundID, &refundAmount,
		&refundReason, &isPartialRefund, &expiresAt, &paidAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, wrapPgErr("order not found", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	buyer, err := order.NewBuyer(buyerEmail, buyerName, derefString(buyerPhone))
	if err != nil {
		return nil, infra.WrapRepoErr("stored buyer email is invalid", err)
	}

	var refund *order.Refund
	if refundID != nil {
		var amount int64
		if refundAmount != nil {
			amount = *refundAmount
		}
		refund = &order.Refund{
			ID:          *refundID,
			AmountCents: amount,
			Reason:      derefString(refundReason),
			IsPartial:   isPartialRefund,
		}
	}

	return order.ReconstructOrder(
		id, orderNumber, eventID, buyer, items,
		order.Breakdown{SubtotalCents: subtotal, DiscountCents: discount, FeeCents: fee, TotalCents: total},
		currency, order.Status(status), promoCodeID,
		derefString(sessionID), derefString(sessionURL), sessionExpiresAt,
		derefString(paymentID), refund,
		expiresAt, paidAt, createdAt, updatedAt,
	), nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ticket_type_id, quantity, unit_price_cents, subtotal_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY ticket_type_id
	`, orderID)
	if err != nil {
		return nil, wrapPgErr("failed to load order items", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var (
			ticketTypeID       uuid.UUID
			quantity           int32
			unitPrice, subtotal int64
		)
		if err := rows.Scan(&ticketTypeID, &quantity, &unitPrice, &subtotal); err != nil {
			return nil, wrapPgErr("failed to scan order item", err)
		}
		item, err := order.ReconstructItem(ticketTypeID, quantity, unitPrice, subtotal)
		if err != nil {
			return nil, infra.WrapRepoErr("stored order item is inconsistent", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate order items", err)
	}
	return items, nil
}
