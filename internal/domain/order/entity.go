package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyItems           = errors.New("order must contain at least one item")
	ErrInvalidQuantity      = errors.New("item quantity must be positive")
	ErrIllegalTransition    = errors.New("illegal payment status transition")
	ErrNotRefundable        = errors.New("order is not refundable")
	ErrRefundExceedsTotal   = errors.New("refund amount exceeds order total")
	ErrMissingPaymentRef    = errors.New("order has no gateway payment reference")
	ErrCurrencyMismatch     = errors.New("order items carry mixed currencies")
	ErrEventMismatch        = errors.New("order items belong to different events")
	errItemSubtotalMismatch = errors.New("item subtotal does not match unit price times quantity")
)

// Item is a line snapshot taken at order creation. Prices are never
// re-derived from the ticket type afterwards.
type Item struct {
	ticketTypeID   uuid.UUID
	quantity       int32
	unitPriceCents int64
	subtotalCents  int64
}

func NewItem(ticketTypeID uuid.UUID, quantity int32, unitPriceCents int64) (Item, error) {
	if quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	return Item{
		ticketTypeID:   ticketTypeID,
		quantity:       quantity,
		unitPriceCents: unitPriceCents,
		subtotalCents:  unitPriceCents * int64(quantity),
	}, nil
}

func ReconstructItem(ticketTypeID uuid.UUID, quantity int32, unitPriceCents, subtotalCents int64) (Item, error) {
	if subtotalCents != unitPriceCents*int64(quantity) {
		return Item{}, errItemSubtotalMismatch
	}
	return Item{
		ticketTypeID:   ticketTypeID,
		quantity:       quantity,
		unitPriceCents: unitPriceCents,
		subtotalCents:  subtotalCents,
	}, nil
}

func (i Item) TicketTypeID() uuid.UUID { return i.ticketTypeID }
func (i Item) Quantity() int32         { return i.quantity }
func (i Item) UnitPriceCents() int64   { return i.unitPriceCents }
func (i Item) SubtotalCents() int64    { return i.subtotalCents }

type Refund struct {
	ID          string
	AmountCents int64
	Reason      string
	IsPartial   bool
}

type Order struct {
	id               uuid.UUID
	orderNumber      string
	eventID          uuid.UUID
	buyer            Buyer
	items            []Item
	breakdown        Breakdown
	currency         string
	status           Status
	promoCodeID      *uuid.UUID
	gatewaySessionID string
	sessionURL       string
	sessionExpiresAt *time.Time
	gatewayPaymentID string
	refund           *Refund
	expiresAt        time.Time
	paidAt           *time.Time
	createdAt        time.Time
	updatedAt        time.Time
}

func NewOrder(
	eventID uuid.UUID,
	buyer Buyer,
	items []Item,
	breakdown Breakdown,
	currency string,
	promoCodeID *uuid.UUID,
	now time.Time,
	reservationWindow time.Duration,
) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	return &Order{
		id:          uuid.New(),
		orderNumber: NewOrderNumber(),
		eventID:     eventID,
		buyer:       buyer,
		items:       items,
		breakdown:   breakdown,
		currency:    currency,
		status:      StatusPending,
		promoCodeID: promoCodeID,
		expiresAt:   now.Add(reservationWindow),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructOrder(
	id uuid.UUID,
	orderNumber string,
	eventID uuid.UUID,
	buyer Buyer,
	items []Item,
	breakdown Breakdown,
	currency string,
	status Status,
	promoCodeID *uuid.UUID,
	gatewaySessionID, sessionURL string,
	sessionExpiresAt *time.Time,
	gatewayPaymentID string,
	refund *Refund,
	expiresAt time.Time,
	paidAt *time.Time,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		id:               id,
		orderNumber:      orderNumber,
		eventID:          eventID,
		buyer:            buyer,
		items:            items,
		breakdown:        breakdown,
		currency:         currency,
		status:           status,
		promoCodeID:      promoCodeID,
		gatewaySessionID: gatewaySessionID,
		sessionURL:       sessionURL,
		sessionExpiresAt: sessionExpiresAt,
		gatewayPaymentID: gatewayPaymentID,
		refund:           refund,
		expiresAt:        expiresAt,
		paidAt:           paidAt,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// HasExpired reports whether the reservation window has elapsed. Only
// meaningful while the order is still pending.
func (o *Order) HasExpired(now time.Time) bool {
	return now.After(o.expiresAt)
}

// HasOpenSession reports whether a previously created checkout session can be
// handed back instead of creating a new one.
func (o *Order) HasOpenSession(now time.Time) bool {
	if o.gatewaySessionID == "" || o.sessionURL == "" {
		return false
	}
	return o.sessionExpiresAt == nil || now.Before(*o.sessionExpiresAt)
}

// RefundableAmount validates a requested refund against the order state and
// returns the effective amount (full total when requested is zero) along with
// whether it is partial.
func (o *Order) RefundableAmount(requestedCents int64) (int64, bool, error) {
	if o.status != StatusCompleted {
		return 0, false, ErrNotRefundable
	}
	if o.gatewayPaymentID == "" {
		return 0, false, ErrMissingPaymentRef
	}
	if requestedCents == 0 {
		return o.breakdown.TotalCents, false, nil
	}
	if requestedCents < 0 || requestedCents > o.breakdown.TotalCents {
		return 0, false, ErrRefundExceedsTotal
	}
	return requestedCents, requestedCents < o.breakdown.TotalCents, nil
}

// TotalQuantity is the number of ticket units across all line items, i.e. the
// number of attendees a completed order provisions.
func (o *Order) TotalQuantity() int32 {
	var total int32
	for _, item := range o.items {
		total += item.quantity
	}
	return total
}

func (o *Order) ID() uuid.UUID               { return o.id }
func (o *Order) OrderNumber() string         { return o.orderNumber }
func (o *Order) EventID() uuid.UUID          { return o.eventID }
func (o *Order) Buyer() Buyer                { return o.buyer }
func (o *Order) Items() []Item               { return o.items }
func (o *Order) Breakdown() Breakdown        { return o.breakdown }
func (o *Order) Currency() string            { return o.currency }
func (o *Order) Status() Status              { return o.status }
func (o *Order) PromoCodeID() *uuid.UUID     { return o.promoCodeID }
func (o *Order) GatewaySessionID() string    { return o.gatewaySessionID }
func (o *Order) SessionURL() string          { return o.sessionURL }
func (o *Order) SessionExpiresAt() *time.Time { return o.sessionExpiresAt }
func (o *Order) GatewayPaymentID() string    { return o.gatewayPaymentID }
func (o *Order) Refund() *Refund             { return o.refund }
func (o *Order) ExpiresAt() time.Time        { return o.expiresAt }
func (o *Order) PaidAt() *time.Time          { return o.paidAt }
func (o *Order) CreatedAt() time.Time        { return o.createdAt }
func (o *Order) UpdatedAt() time.Time        { return o.updatedAt }
