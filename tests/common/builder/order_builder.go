//go:build unit || e2e

package builder

import (
	"time"

	"github.com/google/uuid"

	reqdto "event-ticketing/internal/handler/dto/request"
	"event-ticketing/internal/domain/order"
	"event-ticketing/internal/usecase/commands"
	"event-ticketing/internal/usecase/queries"
)

// OrderBuilder assembles consistent order fixtures: one event, one ticket
// type, two seats at 2500 cents unless overridden.
type OrderBuilder struct {
	orderID      uuid.UUID
	eventID      uuid.UUID
	ticketTypeID uuid.UUID
	buyerEmail   string
	buyerName    string
	quantity     int32
	priceCents   int64
	promoCode    *string
	status       string
}

func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{
		orderID:      uuid.New(),
		eventID:      uuid.New(),
		ticketTypeID: uuid.New(),
		buyerEmail:   "buyer@example.com",
		buyerName:    "Jamie Buyer",
		quantity:     2,
		priceCents:   2500,
		status:       order.StatusPending.String(),
	}
}

func (b *OrderBuilder) WithEventID(id uuid.UUID) *OrderBuilder      { b.eventID = id; return b }
func (b *OrderBuilder) WithTicketTypeID(id uuid.UUID) *OrderBuilder { b.ticketTypeID = id; return b }
func (b *OrderBuilder) WithBuyerEmail(e string) *OrderBuilder       { b.buyerEmail = e; return b }
func (b *OrderBuilder) WithQuantity(q int32) *OrderBuilder          { b.quantity = q; return b }
func (b *OrderBuilder) WithPriceCents(p int64) *OrderBuilder        { b.priceCents = p; return b }
func (b *OrderBuilder) WithPromoCode(code string) *OrderBuilder     { b.promoCode = &code; return b }
func (b *OrderBuilder) WithStatus(s string) *OrderBuilder           { b.status = s; return b }

func (b *OrderBuilder) BuildCreateRequestDTO() reqdto.CreateOrderRequest {
	return reqdto.CreateOrderRequest{
		BuyerEmail: b.buyerEmail,
		BuyerName:  b.buyerName,
		Items: []reqdto.OrderItemRequest{
			{TicketTypeID: b.ticketTypeID, Quantity: b.quantity},
		},
		PromoCode: b.promoCode,
	}
}

func (b *OrderBuilder) BuildCreateResult() *commands.CreateOrderResult {
	subtotal := b.priceCents * int64(b.quantity)
	fee := order.RoundRateBps(subtotal, 300)
	return &commands.CreateOrderResult{
		OrderID:     b.orderID,
		OrderNumber: "ORD-TESTORDER123456",
		Breakdown: order.Breakdown{
			SubtotalCents: subtotal,
			FeeCents:      fee,
			TotalCents:    subtotal + fee,
		},
		Currency:  "USD",
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
}

func (b *OrderBuilder) BuildView() *queries.OrderView {
	subtotal := b.priceCents * int64(b.quantity)
	fee := order.RoundRateBps(subtotal, 300)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &queries.OrderView{
		ID:          b.orderID,
		OrderNumber: "ORD-TESTORDER123456",
		EventID:     b.eventID,
		BuyerEmail:  b.buyerEmail,
		BuyerName:   b.buyerName,
		Status:      b.status,
		Items: []queries.OrderItemView{
			{
				TicketTypeID:   b.ticketTypeID,
				TicketTypeName: "General Admission",
				Quantity:       b.quantity,
				UnitPriceCents: b.priceCents,
				SubtotalCents:  subtotal,
			},
		},
		SubtotalCents: subtotal,
		FeeCents:      fee,
		TotalCents:    subtotal + fee,
		Currency:      "USD",
		ExpiresAt:     now.Add(30 * time.Minute),
		CreatedAt:     now,
	}
}

func (b *OrderBuilder) BuildListItem() *queries.OrderListItem {
	subtotal := b.priceCents * int64(b.quantity)
	return &queries.OrderListItem{
		ID:          b.orderID,
		OrderNumber: "ORD-TESTORDER123456",
		BuyerEmail:  b.buyerEmail,
		Status:      b.status,
		TotalCents:  subtotal + order.RoundRateBps(subtotal, 300),
		Currency:    "USD",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}
