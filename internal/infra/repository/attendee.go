package repository

import (
	"context"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/attendee"
	"event-ticketing/internal/infra/db"
)

type AttendeeRepository struct {
	db db.DBTX
}

func NewAttendeeRepository(dbtx db.DBTX) *AttendeeRepository {
	return &AttendeeRepository{db: dbtx}
}

func (r *AttendeeRepository) CreateBatch(ctx context.Context, attendees []*attendee.Attendee) error {
	for _, a := range attendees {
		_, err := r.db.Exec(ctx, `
			INSERT INTO attendees (id, order_id, order_number, event_id, ticket_type_id,
			                       ticket_number, buyer_email, buyer_name, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, a.ID(), a.OrderID(), a.OrderNumber(), a.EventID(), a.TicketTypeID(),
			a.TicketNumber(), a.BuyerEmail(), a.BuyerName(), string(a.Status()))
		if err != nil {
			return wrapPgErr("failed to insert attendee", err)
		}
	}
	return nil
}

// CancelByOrderID flips active attendees to cancelled; records are never
// deleted.
func (r *AttendeeRepository) CancelByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE attendees
		SET status = $2, updated_at = now()
		WHERE order_id = $1 AND status = $3
	`, orderID, string(attendee.StatusCancelled), string(attendee.StatusActive))
	if err != nil {
		return 0, wrapPgErr("failed to cancel attendees", err)
	}
	return tag.RowsAffected(), nil
}
