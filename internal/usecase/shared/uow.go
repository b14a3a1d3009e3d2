package shared

import (
	"context"
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/domain/attendee"
	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/domain/promo"
	"event-ticketing/internal/domain/ticket"
	"event-ticketing/internal/pkg/errs"
)

// ErrStaleTransition is returned by the guarded order transitions when the
// row predicate matched nothing: another writer (webhook reconciler, sweeper,
// refund coordinator) already moved the order. Callers treat it as "the other
// side won", never as data corruption.
var ErrStaleTransition = errs.New("order already transitioned")

// Tx exposes the write-side repositories bound to one database transaction.
// Every financial mutation in the system goes through exactly one Tx so
// partial updates are impossible by construction.
type Tx interface {
	Orders() OrderRepository
	Inventory() InventoryRepository
	Promos() PromoRepository
	WebhookEvents() WebhookEventRepository
	Attendees() AttendeeRepository
}

type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	// FindByGatewayRefForUpdate resolves an order by checkout session id
	// first, then by gateway payment id.
	FindByGatewayRefForUpdate(ctx context.Context, sessionID, paymentID string) (*order.Order, error)

	// Guarded transitions: each UPDATE carries the set of legal source
	// statuses in its WHERE clause and returns ErrStaleTransition when no
	// row matched.
	AttachSession(ctx context.Context, id uuid.UUID, sessionID, sessionURL string, sessionExpiresAt *time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID, gatewayPaymentID string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	MarkCancelled(ctx context.Context, id uuid.UUID) error
	MarkRefunded(ctx context.Context, id uuid.UUID, refund order.Refund) error
	RecordPartialRefund(ctx context.Context, id uuid.UUID, refund order.Refund) error
}

type InventoryRepository interface {
	// LockForOrder locks the ticket-type rows in ascending id order (fixed
	// lock order prevents deadlocks between concurrent orders) and returns
	// their snapshots.
	LockForOrder(ctx context.Context, ids []uuid.UUID) ([]*ticket.TicketType, error)
	Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error
	ConvertReservedToSold(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error
	ReleaseReserved(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error
	RollbackSold(ctx context.Context, ticketTypeID uuid.UUID, quantity int32) error
}

type PromoRepository interface {
	FindByCodeForUpdate(ctx context.Context, eventID uuid.UUID, normalizedCode string) (*promo.PromoCode, error)
	// IncrementUsage bumps used_count while re-checking max_uses in the row
	// predicate; a miss means the code was exhausted by a concurrent order.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type WebhookEventRepository interface {
	// Claim durably records a gateway event id before any processing and
	// reports false when the id was already present (duplicate delivery).
	Claim(ctx context.Context, eventID, eventType string, payload []byte, receivedAt time.Time) (bool, error)
	// Release undoes a claim whose processing failed after the claim
	// committed, so the gateway's redelivery is not mistaken for a
	// duplicate.
	Release(ctx context.Context, eventID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type AttendeeRepository interface {
	CreateBatch(ctx context.Context, attendees []*attendee.Attendee) error
	CancelByOrderID(ctx context.Context, orderID uuid.UUID) (int64, error)
}
