package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Read models (DTOs for the read side)

type OrderItemView struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id"`
	TicketTypeName string    `json:"ticket_type_name"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents"`
}

type OrderView struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	EventID          uuid.UUID       `json:"event_id"`
	BuyerEmail       string          `json:"buyer_email"`
	BuyerName        string          `json:"buyer_name"`
	Status           string          `json:"status"`
	Items            []OrderItemView `json:"items"`
	SubtotalCents    int64           `json:"subtotal_cents"`
	DiscountCents    int64           `json:"discount_cents"`
	FeeCents         int64           `json:"fee_cents"`
	TotalCents       int64           `json:"total_cents"`
	Currency         string          `json:"currency"`
	AttendeeCount    int32           `json:"attendee_count"`
	IsPartialRefund  bool            `json:"is_partial_refund"`
	RefundAmountCents *int64         `json:"refund_amount_cents,omitempty"`
	ExpiresAt        time.Time       `json:"expires_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type OrderListItem struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	BuyerEmail  string    `json:"buyer_email"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

type TicketTypeView struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	Name        string     `json:"name"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	Capacity    *int32     `json:"capacity,omitempty"`
	Remaining   *int32     `json:"remaining,omitempty"`
	MaxPerOrder int32      `json:"max_per_order"`
	SalesStart  *time.Time `json:"sales_start,omitempty"`
	SalesEnd    *time.Time `json:"sales_end,omitempty"`
	IsActive    bool       `json:"is_active"`
}

type OrderQueries interface {
	GetByNumber(ctx context.Context, orderNumber string) (*OrderView, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, status *string, after *Cursor, limit int) ([]*OrderListItem, *Cursor, error)
}

type TicketTypeQueries interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*TicketTypeView, error)
}

type OrderReadStore interface {
	FindByNumber(ctx context.Context, orderNumber string) (*OrderView, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	ListByEventFirstPage(ctx context.Context, eventID uuid.UUID, status *string, limit int32) ([]*OrderListItem, error)
	ListByEventKeyset(ctx context.Context, eventID uuid.UUID, status *string, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*OrderListItem, error)
}

type TicketTypeReadStore interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*TicketTypeView, error)
}
