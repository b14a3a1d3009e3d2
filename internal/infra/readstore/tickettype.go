package readstore

import (
	"context"

	"github.com/google/uuid"

	"event-ticketing/internal/infra/db"
	"event-ticketing/internal/usecase/queries"
)

type TicketTypeReadStore struct {
	db db.DBTX
}

func NewTicketTypeReadStore(dbtx db.DBTX) *TicketTypeReadStore {
	return &TicketTypeReadStore{db: dbtx}
}

func (r *TicketTypeReadStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*queries.TicketTypeView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, price_cents, currency, capacity,
		       CASE WHEN capacity IS NULL THEN NULL
		            ELSE GREATEST(capacity - sold - reserved, 0)
		       END AS remaining,
		       max_per_order, sales_start, sales_end, is_active
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY price_cents, name
	`, eventID)
	if err != nil {
		return nil, wrapPgErr("failed to list ticket types", err)
	}
	defer rows.Close()

	var views []*queries.TicketTypeView
	for rows.Next() {
		var v queries.TicketTypeView
		v.EventID = eventID
		if err := rows.Scan(&v.ID, &v.Name, &v.PriceCents, &v.Currency, &v.Capacity,
			&v.Remaining, &v.MaxPerOrder, &v.SalesStart, &v.SalesEnd, &v.IsActive); err != nil {
			return nil, wrapPgErr("failed to scan ticket type view", err)
		}
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("failed to iterate ticket type views", err)
	}
	return views, nil
}
