package response

import (
	"time"

	"github.com/google/uuid"

	"event-ticketing/internal/usecase/commands"
	"event-ticketing/internal/usecase/queries"
)

type CreateOrderResponse struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	SubtotalCents int64     `json:"subtotalCents"`
	DiscountCents int64     `json:"discountCents"`
	FeeCents      int64     `json:"feeCents"`
	TotalCents    int64     `json:"totalCents"`
	Currency      string    `json:"currency"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func FromCreateOrderResult(r *commands.CreateOrderResult) *CreateOrderResponse {
	return &CreateOrderResponse{
		OrderID:       r.OrderID,
		OrderNumber:   r.OrderNumber,
		SubtotalCents: r.Breakdown.SubtotalCents,
		DiscountCents: r.Breakdown.DiscountCents,
		FeeCents:      r.Breakdown.FeeCents,
		TotalCents:    r.Breakdown.TotalCents,
		Currency:      r.Currency,
		ExpiresAt:     r.ExpiresAt,
	}
}

type CheckoutSessionResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

func FromCheckoutSessionResult(r *commands.CheckoutSessionResult) *CheckoutSessionResponse {
	return &CheckoutSessionResponse{
		SessionID:   r.SessionID,
		CheckoutURL: r.URL,
	}
}

type RefundResponse struct {
	RefundID    string `json:"refundId"`
	AmountCents int64  `json:"amountCents"`
	IsPartial   bool   `json:"isPartial"`
}

func FromRefundOutcome(r *commands.RefundOutcome) *RefundResponse {
	return &RefundResponse{
		RefundID:    r.RefundID,
		AmountCents: r.AmountCents,
		IsPartial:   r.IsPartial,
	}
}

type OrderItemResponse struct {
	TicketTypeID   uuid.UUID `json:"ticketTypeId"`
	TicketTypeName string    `json:"ticketTypeName"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	SubtotalCents  int64     `json:"subtotalCents"`
}

type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"orderNumber"`
	EventID           uuid.UUID           `json:"eventId"`
	BuyerEmail        string              `json:"buyerEmail"`
	BuyerName         string              `json:"buyerName"`
	Status            string              `json:"status"`
	Items             []OrderItemResponse `json:"items"`
	SubtotalCents     int64               `json:"subtotalCents"`
	DiscountCents     int64               `json:"discountCents"`
	FeeCents          int64               `json:"feeCents"`
	TotalCents        int64               `json:"totalCents"`
	Currency          string              `json:"currency"`
	AttendeeCount     int32               `json:"attendeeCount"`
	IsPartialRefund   bool                `json:"isPartialRefund"`
	RefundAmountCents *int64              `json:"refundAmountCents,omitempty"`
	ExpiresAt         time.Time           `json:"expiresAt"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

func FromOrderView(v *queries.OrderView) *OrderResponse {
	items := make([]OrderItemResponse, len(v.Items))
	for i, item := range v.Items {
		items[i] = OrderItemResponse{
			TicketTypeID:   item.TicketTypeID,
			TicketTypeName: item.TicketTypeName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  item.SubtotalCents,
		}
	}
	return &OrderResponse{
		ID:                v.ID,
		OrderNumber:       v.OrderNumber,
		EventID:           v.EventID,
		BuyerEmail:        v.BuyerEmail,
		BuyerName:         v.BuyerName,
		Status:            v.Status,
		Items:             items,
		SubtotalCents:     v.SubtotalCents,
		DiscountCents:     v.DiscountCents,
		FeeCents:          v.FeeCents,
		TotalCents:        v.TotalCents,
		Currency:          v.Currency,
		AttendeeCount:     v.AttendeeCount,
		IsPartialRefund:   v.IsPartialRefund,
		RefundAmountCents: v.RefundAmountCents,
		ExpiresAt:         v.ExpiresAt,
		PaidAt:            v.PaidAt,
		CreatedAt:         v.CreatedAt,
	}
}

type OrderListItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	BuyerEmail  string    `json:"buyerEmail"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"totalCents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"createdAt"`
}

type OrderListResponse struct {
	Orders     []OrderListItemResponse `json:"orders"`
	NextCursor *string                 `json:"nextCursor,omitempty"`
}

func FromOrderList(items []*queries.OrderListItem, next *queries.Cursor) *OrderListResponse {
	resp := &OrderListResponse{
		Orders: make([]OrderListItemResponse, len(items)),
	}
	for i, item := range items {
		resp.Orders[i] = OrderListItemResponse{
			ID:          item.ID,
			OrderNumber: item.OrderNumber,
			BuyerEmail:  item.BuyerEmail,
			Status:      item.Status,
			TotalCents:  item.TotalCents,
			Currency:    item.Currency,
			CreatedAt:   item.CreatedAt,
		}
	}
	if next != nil {
		resp.NextCursor = &next.After
	}
	return resp
}
